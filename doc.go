// Package identity provides the authentication and persistence core for
// identity-centric applications: JWT issuance and verification backed by a
// symmetric signing key, claim-to-authority transformation, and a staged
// unit-of-work persistence layer built on Bun.
//
// Token flow:
//   - TokenProvider signs a Principal (name plus granted authorities) into a
//     compact JWT carrying the subject and a comma-joined "auth" claim. Two
//     validity windows are supported; the extended one is selected by the
//     caller's remember-me flag. Verification is lazy: expiry is evaluated
//     against the wall clock at validation time, never at issuance.
//   - ExpandAuthorities turns the aggregated "auth" claim back into discrete
//     role values so authorization checks can run against a Principal.
//
// Persistence flow:
//   - Store is a generic, per-entity staging area. Add, Update, Attach,
//     CreateOrUpdate, Delete and join-table reconciliation all enqueue
//     mutations on a shared UnitOfWork; nothing touches the database until
//     SaveChanges commits the whole batch inside one transaction.
//   - ReconcileJoinRows prunes many-to-many join rows that fell out of a
//     saved aggregate. It only ever deletes, which keeps graph saves
//     idempotent: inserting new associations is the caller's job.
//
// RepositoryManager wires concrete Users and Roles repositories plus an
// explicit composition root around these primitives.
package identity
