// Package http exposes the vault over a JSON HTTP API.
//
// Clients sign up or sign in to obtain a bearer access token and then list,
// upload, download and delete their own files:
//
//	POST   /auth/signup    {"email","password"} -> 201 session
//	POST   /auth/signin    {"email","password"} -> 200 session
//	POST   /auth/signout   -> 204
//	GET    /auth/session   -> 200 identity
//	GET    /files          -> 200 {"files": [...]} newest first
//	POST   /files          multipart "file" parts -> 200 per-file results
//	GET    /files/{id}     -> file content as an attachment
//	DELETE /files/{id}     -> 204
//	GET    /healthz        -> 200 when the metadata store answers
//	GET    /metrics        -> Prometheus exposition (when enabled)
//
// Errors are written as {"error": code, "message": text}. Identity failures
// keep the identity collaborator's message. A delete that removed the file
// content but not its record answers 502 with code "dangling_record".
//
// # Usage
//
//	handler := http.NewHandler(&http.HandlerConfig{
//	    Health:  db,
//	    Metrics: http.NewMetrics(),
//	}, authority, gateway)
//	_ = nethttp.ListenAndServe(":8080", handler.Router())
package http
