// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package projects

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trackfinder/internal/config"
	"github.com/tomtom215/trackfinder/internal/metrics"
	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/validation"
)

// Sentinel errors returned by Store.
var (
	ErrNotFound          = errors.New("project not found")
	ErrTrackNotInCatalog = errors.New("track not found in catalog")
	ErrDuplicateTrack    = errors.New("track already in project")
	ErrTrackNotInProject = errors.New("track not in project")
)

// StatusActive is the status of a newly created project.
const StatusActive = "active"

const dateLayout = "2006-01-02"

// Key layout:
//
//	project:<id>                 project record
//	project_track:<id>:<track>   one placed track
//	meta:project_seq             last allocated project number
const (
	projectKeyPrefix = "project:"
	trackKeyPrefix   = "project_track:"
	seqKey           = "meta:project_seq"
)

// Catalog is the track lookup projects validate against.
type Catalog interface {
	GetTrack(ctx context.Context, id string) (models.Track, error)
	TrackExists(ctx context.Context, id string) (bool, error)
}

// CreateInput holds the user-supplied fields of a new project.
type CreateInput struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	ForField      string   `json:"for_field,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Deadline      string   `json:"deadline,omitempty"`
	Collaborators []string `json:"collaborators,omitempty"`
}

// Store keeps project playlists in BadgerDB.
type Store struct {
	db      *badger.DB
	ownsDB  bool
	catalog Catalog
	logger  zerolog.Logger
	now     func() time.Time

	// mu serializes id allocation and track appends so positions stay dense.
	mu sync.Mutex
}

// Open opens the badger database described by cfg.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(cfg *config.ProjectsConfig, catalog Catalog, logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for projects: %w", err)
	}
	s := New(db, catalog, logger)
	s.ownsDB = true
	return s, nil
}

// New wraps an already open database. The caller keeps ownership of db.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(db *badger.DB, catalog Catalog, logger zerolog.Logger) *Store {
	return &Store{
		db:      db,
		catalog: catalog,
		logger:  logger.With().Str("component", "projects").Logger(),
		now:     time.Now,
	}
}

// Close closes the database if Open created it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close projects db: %w", err)
	}
	return nil
}

func (s *Store) today() string {
	return s.now().UTC().Format(dateLayout)
}

// FormatID renders the n-th project id: P001, P002, ... P1000.
func FormatID(n uint64) string {
	return fmt.Sprintf("P%03d", n)
}

// idNumber parses the numeric part of a project id, or 0.
func idNumber(id string) uint64 {
	n, err := strconv.ParseUint(strings.TrimPrefix(id, "P"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Create validates in and stores a new project under the next id.
func (s *Store) Create(ctx context.Context, in *CreateInput) (p models.Project, err error) {
	defer func() { metrics.RecordProjectOperation("create", err) }()
	if err := ctx.Err(); err != nil {
		return models.Project{}, err
	}

	today := s.today()
	p = models.Project{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		ForField:      in.ForField,
		Keywords:      in.Keywords,
		Deadline:      in.Deadline,
		Collaborators: in.Collaborators,
		CreatedOn:     today,
		ModifiedOn:    today,
		Status:        StatusActive,
	}
	if err := validation.Struct(&p); err != nil {
		return models.Project{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(txn *badger.Txn) error {
		seq, err := readSeq(txn)
		if err != nil {
			return err
		}
		seq++
		p.ID = FormatID(seq)
		if err := txn.Set([]byte(seqKey), []byte(strconv.FormatUint(seq, 10))); err != nil {
			return fmt.Errorf("set project sequence: %w", err)
		}
		return putJSON(txn, projectKeyPrefix+p.ID, &p)
	})
	if err != nil {
		return models.Project{}, fmt.Errorf("create project: %w", err)
	}

	s.logger.Info().Str("project_id", p.ID).Str("name", p.Name).Msg("Project created")
	return p, nil
}

func readSeq(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get([]byte(seqKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get project sequence: %w", err)
	}
	var seq uint64
	err = item.Value(func(val []byte) error {
		n, err := strconv.ParseUint(string(val), 10, 64)
		seq = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("parse project sequence: %w", err)
	}
	return seq, nil
}

// Get returns one project, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (models.Project, error) {
	if err := ctx.Err(); err != nil {
		return models.Project{}, err
	}
	var p models.Project
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, projectKeyPrefix+id, &p)
	})
	if err != nil {
		return models.Project{}, fmt.Errorf("get project %s: %w", id, err)
	}
	return p, nil
}

// List returns every project in id order.
func (s *Store) List(ctx context.Context) ([]models.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	projects := []models.Project{}
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, projectKeyPrefix, func(val []byte) error {
			var p models.Project
			if err := json.Unmarshal(val, &p); err != nil {
				return fmt.Errorf("unmarshal project: %w", err)
			}
			projects = append(projects, p)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	// Keys sort lexically, so P1000 would land before P999.
	sort.Slice(projects, func(i, j int) bool { return idNumber(projects[i].ID) < idNumber(projects[j].ID) })
	return projects, nil
}

// Tracks returns the tracks of a project in position order.
func (s *Store) Tracks(ctx context.Context, id string) ([]models.ProjectTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tracks := []models.ProjectTrack{}
	err := s.db.View(func(txn *badger.Txn) error {
		if err := exists(txn, projectKeyPrefix+id); err != nil {
			return err
		}
		var err error
		tracks, err = projectTracks(txn, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list tracks of %s: %w", id, err)
	}
	return tracks, nil
}

// AddTrack appends a catalog track to a project at the next position.
func (s *Store) AddTrack(ctx context.Context, id, trackID, notes string) (pt models.ProjectTrack, err error) {
	defer func() { metrics.RecordProjectOperation("add_track", err) }()

	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return models.ProjectTrack{}, fmt.Errorf("add track: %w", ErrTrackNotInCatalog)
	}
	ok, err := s.catalog.TrackExists(ctx, trackID)
	if err != nil {
		return models.ProjectTrack{}, fmt.Errorf("check track %s: %w", trackID, err)
	}
	if !ok {
		return models.ProjectTrack{}, fmt.Errorf("%s: %w", trackID, ErrTrackNotInCatalog)
	}
	track, err := s.catalog.GetTrack(ctx, trackID)
	if err != nil {
		return models.ProjectTrack{}, fmt.Errorf("get track %s: %w", trackID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.today()
	err = s.db.Update(func(txn *badger.Txn) error {
		var p models.Project
		if err := getJSON(txn, projectKeyPrefix+id, &p); err != nil {
			return err
		}
		key := trackKey(id, trackID)
		if err := exists(txn, key); err == nil {
			return ErrDuplicateTrack
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		current, err := projectTracks(txn, id)
		if err != nil {
			return err
		}
		next := 1
		if n := len(current); n > 0 {
			next = current[n-1].Position + 1
		}

		pt = models.ProjectTrack{
			ProjectID: id,
			TrackID:   trackID,
			Title:     track.Title,
			Position:  next,
			AddedDate: today,
			Notes:     notes,
		}
		if err := putJSON(txn, key, &pt); err != nil {
			return err
		}
		p.ModifiedOn = today
		return putJSON(txn, projectKeyPrefix+id, &p)
	})
	if err != nil {
		return models.ProjectTrack{}, fmt.Errorf("add %s to %s: %w", trackID, id, err)
	}

	s.logger.Debug().Str("project_id", id).Str("track_id", trackID).Int("position", pt.Position).Msg("Track added to project")
	return pt, nil
}

// RemoveTrack deletes a track from a project. Remaining positions are kept.
func (s *Store) RemoveTrack(ctx context.Context, id, trackID string) (err error) {
	defer func() { metrics.RecordProjectOperation("remove_track", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(txn *badger.Txn) error {
		var p models.Project
		if err := getJSON(txn, projectKeyPrefix+id, &p); err != nil {
			return err
		}
		key := trackKey(id, trackID)
		if err := exists(txn, key); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrTrackNotInProject
			}
			return err
		}
		if err := txn.Delete([]byte(key)); err != nil {
			return fmt.Errorf("delete project track: %w", err)
		}
		p.ModifiedOn = s.today()
		return putJSON(txn, projectKeyPrefix+id, &p)
	})
	if err != nil {
		return fmt.Errorf("remove %s from %s: %w", trackID, id, err)
	}
	return nil
}

func trackKey(projectID, trackID string) string {
	return trackKeyPrefix + projectID + ":" + trackID
}

func projectTracks(txn *badger.Txn, id string) ([]models.ProjectTrack, error) {
	tracks := []models.ProjectTrack{}
	err := scanPrefix(txn, trackKeyPrefix+id+":", func(val []byte) error {
		var pt models.ProjectTrack
		if err := json.Unmarshal(val, &pt); err != nil {
			return fmt.Errorf("unmarshal project track: %w", err)
		}
		tracks = append(tracks, pt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Position < tracks[j].Position })
	return tracks, nil
}

func scanPrefix(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

func exists(txn *badger.Txn, key string) error {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return nil
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func putJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := txn.Set([]byte(key), data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
