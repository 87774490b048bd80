// Package auditlog keeps a tamper-evident record of moderation decisions.
//
// Entries form a hash chain anchored at a genesis entry whose hash is
// GenesisHash. Each entry stores the hash of its predecessor, so editing or
// removing any row breaks Verify.
package auditlog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// GenesisHash is the fixed hash of the first entry.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// SystemActor is recorded as the actor of automated entries.
const SystemActor = "system"

// Event names a moderation event.
type Event string

const (
	EventGenesis          Event = "genesis"
	EventReportFlagged    Event = "report.flagged"
	EventReportResolved   Event = "report.resolved"
	EventActionRecorded   Event = "action.recorded"
	EventAppealResolved   Event = "appeal.resolved"
	EventSuspensionLifted Event = "suspension.lifted"
)

// Entry is one record in the chain.
type Entry struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject"` // e.g. "report:<uuid>"
	Event     Event     `json:"event"`
	Actor     string    `json:"actor"`
	DataHash  string    `json:"data_hash"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// Log is an append-only moderation audit chain.
type Log interface {
	// Append chains a new entry. payload is JSON-encoded and only its
	// SHA-256 is stored.
	Append(ctx context.Context, subject string, event Event, actor string, payload any) (*Entry, error)
	Recent(ctx context.Context, limit int) ([]*Entry, error)
	Len(ctx context.Context) (int, error)
	Verify(ctx context.Context) error
}

func genesisEntry(at time.Time) *Entry {
	return &Entry{
		Timestamp: at,
		Event:     EventGenesis,
		Actor:     SystemActor,
		DataHash:  GenesisHash,
		PrevHash:  GenesisHash,
		Hash:      GenesisHash,
	}
}

// next builds the entry that follows prev. Timestamps are truncated to
// microseconds so the hash survives a round trip through Postgres.
func next(prev *Entry, subject string, event Event, actor string, payload any) (*Entry, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}
	sum := sha256.Sum256(data)
	e := &Entry{
		Index:     prev.Index + 1,
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		Subject:   subject,
		Event:     event,
		Actor:     actor,
		DataHash:  hex.EncodeToString(sum[:]),
		PrevHash:  prev.Hash,
	}
	e.Hash = e.computeHash()
	return e, nil
}

func (e *Entry) computeHash() string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s|%s|%s",
		e.Index, e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.Subject, e.Event, e.Actor, e.DataHash, e.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

// chainVerifier checks entries fed to it in index order.
type chainVerifier struct {
	prev *Entry
}

func (v *chainVerifier) check(curr *Entry) error {
	defer func() { v.prev = curr }()
	if v.prev == nil {
		if curr.Hash != GenesisHash {
			return fmt.Errorf("genesis entry has wrong hash: got %q", curr.Hash)
		}
		return nil
	}
	if curr.PrevHash != v.prev.Hash {
		return fmt.Errorf("hash chain broken at index %d", curr.Index)
	}
	if curr.Hash != curr.computeHash() {
		return fmt.Errorf("entry %d has invalid hash", curr.Index)
	}
	return nil
}
