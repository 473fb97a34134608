// Package auth acquires and caches the OAuth2 access token used to call the
// agent API.
//
// The Manager performs the client-credentials grant against the org token
// endpoint, hands out the cached token while it is outside the refresh margin,
// and shares a single in-flight request between concurrent callers. Callers that
// see their token rejected by the API use Refresh to discard it and obtain a new
// one.
package auth
