package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cybermaze-gateway/internal/domain"
)

// Export holds the raw denormalized tables of a finished competition,
// one per entity type, exactly as the platform export produces them.
type Export struct {
	Challenges []ExportChallenge
	Users      []ExportUser
	Teams      []ExportTeam
	Solves     []ExportSolve
	Flags      []ExportFlag
	Files      []ExportFile
	Config     []ExportConfig
}

// SnapshotLoader fetches the export tables from a backing store
// (JSON documents on disk, or the exported rows kept in Postgres).
type SnapshotLoader interface {
	LoadExport(ctx context.Context) (Export, error)
}

// tableDocument is the envelope every exported table is wrapped in.
// The {results:[...]} shape must be preserved verbatim to stay
// compatible with however the export is produced.
type tableDocument[T any] struct {
	Results []T `json:"results"`
}

type ExportChallenge struct {
	ID           int    `json:"id"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Value        int    `json:"value"`
	Category     string `json:"category"`
	State        string `json:"state"`
	MaxAttempts  int    `json:"max_attempts"`
	Requirements []int  `json:"requirements"`
}

type ExportUser struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	TeamID      *int   `json:"team_id"`
	Website     string `json:"website"`
	Affiliation string `json:"affiliation"`
	Country     string `json:"country"`
	Hidden      bool   `json:"hidden"`
}

type ExportTeam struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	CaptainID *int   `json:"captain_id"`
	// Members holds bare user IDs when the export carries an explicit
	// roster; members are otherwise inferred from users' team_id.
	Members     []int  `json:"members"`
	Website     string `json:"website"`
	Affiliation string `json:"affiliation"`
	Country     string `json:"country"`
	Hidden      bool   `json:"hidden"`
}

type ExportSolve struct {
	ChallengeID int  `json:"challenge_id"`
	UserID      int  `json:"user_id"`
	TeamID      *int `json:"team_id"`
}

type ExportFlag struct {
	ChallengeID int    `json:"challenge_id"`
	Content     string `json:"content"`
	// Data holds the comparison mode; "case_insensitive" relaxes the match.
	Data string `json:"data"`
}

type ExportFile struct {
	ChallengeID int    `json:"challenge_id"`
	Location    string `json:"location"`
}

type ExportConfig struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// EventInfo collapses the key/value config rows into the shape the UI consumes.
func (e Export) EventInfo() domain.EventInfo {
	info := domain.EventInfo{Name: "Cybermaze", Mode: domain.ModeTeams}
	for _, row := range e.Config {
		switch row.Key {
		case "ctf_name":
			if row.Value != "" {
				info.Name = row.Value
			}
		case "user_mode":
			if row.Value != "" {
				info.Mode = row.Value
			}
		}
	}
	return info
}

// FSLoader reads the export tables from a directory of JSON documents,
// one file per table.
type FSLoader struct {
	dir string
}

func NewFSLoader(dir string) *FSLoader {
	return &FSLoader{dir: dir}
}

func (l *FSLoader) LoadExport(_ context.Context) (Export, error) {
	var export Export
	if err := readTable(l.dir, "challenges.json", &export.Challenges); err != nil {
		return Export{}, err
	}
	if err := readTable(l.dir, "users.json", &export.Users); err != nil {
		return Export{}, err
	}
	if err := readTable(l.dir, "teams.json", &export.Teams); err != nil {
		return Export{}, err
	}
	if err := readTable(l.dir, "solves.json", &export.Solves); err != nil {
		return Export{}, err
	}
	if err := readTable(l.dir, "flags.json", &export.Flags); err != nil {
		return Export{}, err
	}
	if err := readTable(l.dir, "files.json", &export.Files); err != nil {
		return Export{}, err
	}
	if err := readTable(l.dir, "config.json", &export.Config); err != nil {
		return Export{}, err
	}
	return export, nil
}

func readTable[T any](dir, name string, out *[]T) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("read export table %s: %w", name, err)
	}
	var doc tableDocument[T]
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse export table %s: %w", name, err)
	}
	*out = doc.Results
	return nil
}

// StaticLoader serves a fixed export from memory (tests and demos).
type StaticLoader struct {
	export Export
}

func NewStaticLoader(export Export) *StaticLoader {
	return &StaticLoader{export: export}
}

func (l *StaticLoader) LoadExport(_ context.Context) (Export, error) {
	return l.export, nil
}
