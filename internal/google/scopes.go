package google

import gmail "google.golang.org/api/gmail/v1"

// ReadonlyScopes are the OAuth scopes the refresh token must carry. The
// pipelines only ever read mail.
var ReadonlyScopes = []string{
	gmail.GmailReadonlyScope,
}
