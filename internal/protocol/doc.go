// Package protocol implements the site-link trust decisions made on an
// incoming request: transfer token verification and the CORS gate.
//
// Both decisions are pure functions over one registry snapshot. The snapshot
// is fetched once per call, so a concurrent rebuild is seen either entirely or
// not at all.
package protocol
