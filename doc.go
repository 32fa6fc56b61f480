// Package oasis federates logins with the OASIS membership registry.
//
// Login flow:
//   - AuthenticationDecider resolves the login input to a local account.
//     Local non-member accounts are checked against their bcrypt hash and
//     never reach the registry. Everyone else goes to the registry.
//   - RegistryClient calls the registry with the member credentials and
//     returns a sanitized RegistryRecord. Failures are classified into an
//     ErrorKind carried by a go-errors Error.
//   - AccountReconciler creates or updates the local account for the member
//     and saves it once. Member roles are only ever added.
//   - SessionFinalizer stores the member marker (member id, registry token,
//     category and orchard roles) in the request session.
//
// Sessions:
//   - SessionGuard runs on authenticated requests and warns members whose
//     session lost the registry token. It never blocks the request.
//   - LogoutRedirector sends members to the registry logout page.
//
// Activity sinks:
//   - ActivitySink receives login, account and session events. Sinks run
//     best effort, errors are logged and never fail a login.
package oasis
