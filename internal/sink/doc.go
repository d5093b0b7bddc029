// Package sink implements the append-only persistence port used by the
// pipelines. Every backend turns one pipeline.Row into one inserted row or
// document; none of them deduplicate or upsert.
//
// Backends:
//
//   - supabase: PostgREST insert over HTTPS (POST /rest/v1/{table})
//   - postgres: direct insert through a pgx connection pool
//   - sqlite: local journal file, one JSON row per insert
//   - firestore: one document per insert, collection named after the table
//   - memory: in-process rows, used by --dry-run and tests
package sink
