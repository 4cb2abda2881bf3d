// v0
// internal/dataset/snapshot.go
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/jacobtread/Committers/internal/rank"
)

// ErrMalformedSnapshot is returned when a payload does not have the shape of
// a leaderboard snapshot.
var ErrMalformedSnapshot = errors.New("malformed leaderboard snapshot")

// Snapshot mirrors the leaderboard file written by the upstream collector.
// Users are stored in rank order: the first user holds rank #1.
type Snapshot struct {
	Title        string    `json:"title" yaml:"title"`
	MinFollowers int64     `json:"min_followers" yaml:"min_followers"`
	GeneratedAt  time.Time `json:"generated_at" yaml:"generated_at"`
	Users        []User    `json:"users" yaml:"users"`
}

// User is a single collected account together with its contribution totals.
type User struct {
	Login        string   `json:"login" yaml:"login"`
	Avatar       string   `json:"avatar" yaml:"avatar"`
	Name         *string  `json:"name" yaml:"name"`
	Company      *string  `json:"company" yaml:"company"`
	Orgs         []string `json:"orgs" yaml:"orgs"`
	Followers    int64    `json:"followers" yaml:"followers"`
	Contribs     int64    `json:"contribs" yaml:"contribs"`
	PubContribs  int64    `json:"pub_contribs" yaml:"pub_contribs"`
	PrivContribs int64    `json:"priv_contribs" yaml:"priv_contribs"`
	Commits      int64    `json:"commits" yaml:"commits"`
	PullRequests int64    `json:"pull_requests" yaml:"pull_requests"`
}

// Entities projects the users onto ranked entities, ranking by position.
func (s Snapshot) Entities() []rank.Entity {
	out := make([]rank.Entity, len(s.Users))
	for i, user := range s.Users {
		out[i] = rank.Entity{Identifier: user.Login, Rank: i + 1}
	}
	return out
}

// Exclude drops every user whose login is listed, preserving the order of
// the remaining users.
func (s Snapshot) Exclude(logins []string) Snapshot {
	if len(logins) == 0 {
		return s
	}
	blocked := make(map[string]struct{}, len(logins))
	for _, login := range logins {
		blocked[login] = struct{}{}
	}

	kept := make([]User, 0, len(s.Users))
	for _, user := range s.Users {
		if _, drop := blocked[user.Login]; drop {
			continue
		}
		kept = append(kept, user)
	}

	out := s
	out.Users = kept
	return out
}

// PurgeBlacklisted excludes the listed logins and re-sorts the remaining
// users by commits, highest first. Ties keep their previous order.
func (s Snapshot) PurgeBlacklisted(blacklist []string) Snapshot {
	out := s.Exclude(blacklist)
	users := make([]User, len(out.Users))
	copy(users, out.Users)
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Commits > users[j].Commits
	})
	out.Users = users
	return out
}

// DecodeJSON parses a JSON snapshot. The payload must be an object carrying a
// users array; anything else is rejected before decoding.
func DecodeJSON(raw []byte) (Snapshot, error) {
	if !gjson.ValidBytes(raw) {
		return Snapshot{}, fmt.Errorf("%w: invalid json", ErrMalformedSnapshot)
	}
	users := gjson.GetBytes(raw, "users")
	if !users.Exists() || !users.IsArray() {
		return Snapshot{}, fmt.Errorf("%w: users array missing", ErrMalformedSnapshot)
	}

	var snap Snapshot
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return snap, nil
}

// DecodeYAML parses a YAML snapshot using the same field names as JSON.
func DecodeYAML(raw []byte) (Snapshot, error) {
	var probe map[string]any
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if _, ok := probe["users"].([]any); !ok {
		return Snapshot{}, fmt.Errorf("%w: users array missing", ErrMalformedSnapshot)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return snap, nil
}

// LoadFile reads a snapshot from disk, choosing the decoder by extension.
// Files without a YAML extension are treated as JSON.
func LoadFile(path string) (Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(raw)
	default:
		return DecodeJSON(raw)
	}
}

// WriteFile stores the snapshot as compact JSON, replacing the file
// atomically through a temporary sibling.
func WriteFile(path string, snap Snapshot) error {
	encoded, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
