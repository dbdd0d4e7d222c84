package identity

// JoinRow is one record of a many-to-many association, keyed by the owning
// and owned entity identifiers.
type JoinRow[O comparable, D comparable] struct {
	OwnerID O
	OwnedID D
}

// ReconcileJoinRows returns the join rows that must be deleted so the
// stored association set for ownerID ends up exactly matching idsToKeep: a
// row is stale iff it belongs to ownerID and its owned id is absent from
// idsToKeep. Rows of other owners are never touched.
//
// The reconciler only deletes; inserting new associations is the caller's
// responsibility during the normal graph save. That asymmetry makes it
// idempotent: a second pass with the same idsToKeep deletes nothing.
func ReconcileJoinRows[O comparable, D comparable](rows []JoinRow[O, D], ownerID O, idsToKeep []D) []JoinRow[O, D] {
	keep := make(map[D]struct{}, len(idsToKeep))
	for _, id := range idsToKeep {
		keep[id] = struct{}{}
	}

	var stale []JoinRow[O, D]
	for _, row := range rows {
		if row.OwnerID != ownerID {
			continue
		}
		if _, ok := keep[row.OwnedID]; ok {
			continue
		}
		stale = append(stale, row)
	}
	return stale
}
