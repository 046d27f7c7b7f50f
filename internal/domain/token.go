package domain

import "time"

// BucketLayout renders the hour bucket: date immediately followed by the UTC hour,
// e.g. "2026-10-1914".
const BucketLayout = "2006-01-0215"

// TimeBucket truncates now to its UTC hour bucket.
func TimeBucket(now time.Time) string {
	return now.UTC().Format(BucketLayout)
}

// IssueToken returns the transfer token for linkID in the hour bucket of now.
// Two calls inside the same bucket return the same token.
func (d Digest) IssueToken(linkID string, now time.Time) string {
	return d.token(linkID, TimeBucket(now))
}
