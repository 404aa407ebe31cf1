package model

import (
	"strings"
	"time"
)

// Target is one identifier to resolve (IPv4 literal, hostname, or anything else)
type Target struct {
	Value  string // Literal string passed to WHOIS
	Index  int    // 0-based position in the input list
	IsIPv4 bool   // True when Value is a dotted-quad IPv4 address
	Addr   uint32 // Big-endian address value, valid only when IsIPv4
}

// QueryStatus describes how a WHOIS query ended
type QueryStatus string

const (
	StatusOK      QueryStatus = "ok"
	StatusTimeout QueryStatus = "timeout"
	StatusFailed  QueryStatus = "failed"
	StatusCached  QueryStatus = "cached"
)

// RawResponse is the captured text of one WHOIS query.
// Failures are carried here as data; Err is informational only.
type RawResponse struct {
	Target  Target
	Text    string        // Combined output, possibly partial or empty
	Status  QueryStatus   // How the query ended
	Elapsed time.Duration // Wall time of the query
	Err     error         // Underlying error for timeout/failed statuses
}

// Usable reports whether the response can be returned without a retry.
// A non-zero exit with text is still usable; a timeout or empty text is not.
func (r RawResponse) Usable() bool {
	return r.Status != StatusTimeout && strings.TrimSpace(r.Text) != ""
}

// OwnershipRecord is the normalized output unit, one per target.
// Fields are always populated, possibly with empty strings.
type OwnershipRecord struct {
	Index       int    // Input position, used for ordered output
	Target      string // Queried identifier
	NetRange    string // Raw NetRange/inetnum value
	Owner       string // First NetName/netname value
	Description string // descr/Description/OrgName values joined by " | "
}

// Fields returns the record in CSV column order
func (r OwnershipRecord) Fields() []string {
	return []string{r.Target, r.NetRange, r.Owner, r.Description}
}

// Summary reports what a run produced
type Summary struct {
	Total      int                 // Targets dispatched
	Written    int                 // Rows written to the output
	ByStatus   map[QueryStatus]int // Query outcome counts
	NoRange    int                 // Records without a NetRange
	StartedAt  time.Time
	FinishedAt time.Time
}

// Error types
type Error string

const (
	ErrNoTargets     Error = "no usable targets in input"
	ErrInvalidIP     Error = "invalid IPv4 address"
	ErrInvalidRange  Error = "invalid IP range"
	ErrCacheClosed   Error = "response cache is closed"
	ErrQueryFailed   Error = "WHOIS query failed"
	ErrQueryTimeout  Error = "WHOIS query timed out"
	ErrWriterClosed  Error = "result writer is closed"
	ErrInvalidConfig Error = "invalid configuration"
)

func (e Error) Error() string {
	return string(e)
}
