// Package account provides the authentication and authorization core for a
// small multi-user application: password credentials, one-time codes,
// database-backed sessions, external identity connections, and role based
// permissions, all persisted through Bun.
//
// Credentials:
//   - Passwords live in their own table keyed by user id and are hashed with
//     bcrypt. CredentialVerifier resolves a user by id, email, or username and
//     compares hashes; every credential failure collapses into the single
//     ErrMismatchedHashAndPassword so callers cannot distinguish a missing
//     account from a wrong password.
//
// Verifications:
//   - VerificationLedger stores one TOTP secret per (target, type) pair and
//     derives time-windowed codes from it, so codes are never persisted.
//     Flows like onboarding, password reset, and email change each use their
//     own type. Recent-verification markers live in a caller provided
//     ScopedStore rather than process memory.
//
// Sessions:
//   - Sessions are rows with an absolute expiration. Resolution treats an
//     expired row the same as a missing one and leaves cleanup to a sweep;
//     logout is best-effort and idempotent.
//
// Orchestration:
//   - Signup, connection signup, password reset, and email change run as
//     command handlers that wrap their whole flow in one transaction. Each
//     handler emits ActivityEvents through a best-effort ActivitySink.
package account
