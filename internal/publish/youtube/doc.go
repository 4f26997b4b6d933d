// Package youtube uploads finished videos through the YouTube Data API.
//
// The client refreshes its OAuth access token on demand from the stored
// refresh token and submits videos with a single multipart request. Quota
// rejections and 5xx responses are reported as retryable publish errors so
// the coordinator tries again on a later pass.
package youtube
