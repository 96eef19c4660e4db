// Package devconnect implements the backend of a developer social network:
// member registration and token sessions, developer profiles with work
// experience, education and GitHub repositories, and posts with likes and
// comments.
//
// Storage:
//   - Users, profiles and posts live in SQLite through Bun. Experience,
//     education, likes and comments are embedded JSON lists on their parent
//     row, so every change to them is a read-modify-write that runs inside
//     RepositoryManager.RunInTx.
//   - NewPersistence wraps the database in a go-persistence-bun client and
//     Migrate applies the embedded SQL migrations on startup.
//
// Sessions:
//   - TokenService issues HS256 tokens that expire after seven days. The
//     authgate middleware reads them from the x-auth-token header, resolves
//     the member through Auther.Authenticate and stores it in the request
//     context (see FromContext).
//
// HTTP:
//   - NewServer builds a go-router server on fiber with request logging.
//     RegisterRoutes mounts the JSON API under /api on its router and
//     ErrorHandler renders every go-errors category as a JSON body.
package devconnect
