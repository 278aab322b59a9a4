package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/vegasq/ncfstore/internal/rowjson"
	"github.com/vegasq/ncfstore/ncf"
)

const (
	dayLayout       = "2006-01-02"
	ncfDirName      = "ncf"
	dayFilePrefix   = "events-"
	dayFileSuffix   = ".ncf"
	profileSnapshot = "profiles.json.zst"
)

// PersistenceOptions configures a PersistenceManager. Zero values fall back
// to lz4 labels, no periodic saving, no retention and the global logger.
type PersistenceOptions struct {
	DataDir       string
	Compression   string
	SaveInterval  time.Duration
	RetentionDays int
	Logger        *zap.Logger
	Now           func() time.Time
}

// PersistenceManager saves the stores to a data directory and loads them
// back. SaveAll and LoadAll are serialized against each other.
type PersistenceManager struct {
	dir         string
	compression string
	interval    time.Duration
	retention   int
	profiles    *ProfileStore
	events      *EventStore
	log         *zap.Logger
	now         func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPersistenceManager creates the data directory if needed.
func NewPersistenceManager(profiles *ProfileStore, events *EventStore, opts PersistenceOptions) (*PersistenceManager, error) {
	if opts.DataDir == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(filepath.Join(opts.DataDir, ncfDirName), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	pm := &PersistenceManager{
		dir:         opts.DataDir,
		compression: opts.Compression,
		interval:    opts.SaveInterval,
		retention:   opts.RetentionDays,
		profiles:    profiles,
		events:      events,
		log:         opts.Logger,
		now:         opts.Now,
	}
	if pm.compression == "" {
		pm.compression = "lz4"
	}
	if pm.log == nil {
		pm.log = zap.NewNop()
	}
	if pm.now == nil {
		pm.now = time.Now
	}
	return pm, nil
}

// DayFile returns the path of the NCF file holding events of day.
func (pm *PersistenceManager) DayFile(day time.Time) string {
	name := dayFilePrefix + day.UTC().Format(dayLayout) + dayFileSuffix
	return filepath.Join(pm.dir, ncfDirName, name)
}

// SaveAll writes the profile snapshot and every day file.
func (pm *PersistenceManager) SaveAll() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	start := time.Now()
	err := errors.Join(pm.saveProfiles(), pm.saveEventsNCF())
	if err != nil {
		pm.log.Error("Failed to save data", zap.String("dir", pm.dir), zap.Error(err))
		return err
	}
	pm.log.Info("Saved all data",
		zap.String("dir", pm.dir),
		zap.Int("profiles", pm.profiles.Len()),
		zap.Int("events", pm.events.Len()),
		zap.Duration("took", time.Since(start)))
	return nil
}

// LoadAll restores the profile snapshot, then replays the day files. Events
// already in memory are skipped.
func (pm *PersistenceManager) LoadAll() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if err := pm.loadProfiles(); err != nil {
		return err
	}
	n, err := pm.loadEventsNCF()
	if err != nil {
		return err
	}
	pm.log.Info("Loaded all data",
		zap.String("dir", pm.dir),
		zap.Int("profiles", pm.profiles.Len()),
		zap.Int("events_restored", n))
	return nil
}

// SaveProfiles writes profiles.json.zst.
func (pm *PersistenceManager) SaveProfiles() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.saveProfiles()
}

func (pm *PersistenceManager) saveProfiles() error {
	data, err := rowjson.Marshal(pm.profiles.All())
	if err != nil {
		return fmt.Errorf("failed to encode profiles: %w", err)
	}

	return writeAtomic(filepath.Join(pm.dir, profileSnapshot), func(f *os.File) error {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return err
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	})
}

// LoadProfiles reads profiles.json.zst if it exists.
func (pm *PersistenceManager) LoadProfiles() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.loadProfiles()
}

func (pm *PersistenceManager) loadProfiles() error {
	path := filepath.Join(pm.dir, profileSnapshot)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open profile snapshot: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to open profile snapshot: %w", err)
	}
	defer dec.Close()

	var profiles []UserProfile
	if err := rowjson.DecodeInto(dec, &profiles); err != nil {
		return fmt.Errorf("failed to decode profile snapshot %s: %w", path, err)
	}
	for _, p := range profiles {
		for k, v := range p.Properties {
			p.Properties[k] = rowjson.Normalize(v)
		}
		pm.profiles.Restore(p)
	}
	pm.log.Debug("Loaded profile snapshot", zap.String("path", path), zap.Int("profiles", len(profiles)))
	return nil
}

// SaveEventsNCF rewrites one NCF file per UTC day from the events in
// memory. A day that fails is reported but does not stop the others.
func (pm *PersistenceManager) SaveEventsNCF() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.saveEventsNCF()
}

func (pm *PersistenceManager) saveEventsNCF() error {
	groups, days := byDay(pm.events.All())

	var errs []error
	for _, day := range days {
		dayEvents := groups[day]
		path := filepath.Join(pm.dir, ncfDirName, dayFilePrefix+day+dayFileSuffix)
		if err := pm.writeDay(path, dayEvents); err != nil {
			errs = append(errs, fmt.Errorf("day %s: %w", day, err))
			continue
		}
		pm.log.Debug("Wrote day file", zap.String("path", path), zap.Int("events", len(dayEvents)))
	}
	return errors.Join(errs...)
}

func (pm *PersistenceManager) writeDay(path string, events []Event) error {
	rows := make([]map[string]interface{}, len(events))
	for i, ev := range events {
		rows[i] = ev.Row()
	}
	for _, name := range mixedTypeFields(rows) {
		pm.log.Warn("Storing property as text, its values have conflicting types",
			zap.String("path", path), zap.String("property", name))
		if err := storeAsText(rows, name); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
	}

	w := ncf.NewWriter(pm.compression, ncf.WithClock(pm.now))
	for i, row := range rows {
		if err := w.AddRow(row); err != nil {
			return fmt.Errorf("event %s: %w", events[i].EventID, err)
		}
	}
	return writeAtomic(path, func(f *os.File) error {
		return w.Write(f)
	})
}

// mixedTypeFields returns, sorted, the fields whose values no single NCF
// column type can hold in row order.
func mixedTypeFields(rows []map[string]interface{}) []string {
	types := make(map[string]ncf.DataType)
	mixed := make(map[string]bool)
	for _, row := range rows {
		for name, v := range row {
			if mixed[name] {
				continue
			}
			typ, ok := ncf.Widen(types[name], ncf.InferDataType(v))
			if !ok {
				mixed[name] = true
				continue
			}
			types[name] = typ
		}
	}

	names := make([]string, 0, len(mixed))
	for name := range mixed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// storeAsText replaces every non-null value of field with its text: strings
// stay as they are, everything else becomes JSON.
func storeAsText(rows []map[string]interface{}, field string) error {
	for _, row := range rows {
		switch v := row[field].(type) {
		case nil, string:
		case time.Time:
			row[field] = v.UTC().Format(time.RFC3339Nano)
		default:
			text, err := rowjson.Marshal(v)
			if err != nil {
				return err
			}
			row[field] = string(text)
		}
	}
	return nil
}

// LoadEventsNCF replays every day file into the event store and returns the
// number of events restored. Unreadable files are logged and skipped.
func (pm *PersistenceManager) LoadEventsNCF() (int, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.loadEventsNCF()
}

func (pm *PersistenceManager) loadEventsNCF() (int, error) {
	paths, err := filepath.Glob(filepath.Join(pm.dir, ncfDirName, dayFilePrefix+"*"+dayFileSuffix))
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, path := range paths {
		rows, err := readNCF(path)
		if err != nil {
			pm.log.Error("Failed to load day file", zap.String("path", path), zap.Error(err))
			continue
		}
		for i, row := range rows {
			ev, err := eventFromRow(row)
			if err != nil {
				pm.log.Warn("Skipping row", zap.String("path", path), zap.Int("row", i), zap.Error(err))
				continue
			}
			if pm.events.Restore(ev) {
				restored++
			}
		}
	}
	return restored, nil
}

func readNCF(path string) ([]map[string]interface{}, error) {
	r, err := ncf.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}

// ApplyRetentionPolicy deletes day files and in-memory events older than
// days whole UTC days before now. It returns the removed file paths.
func (pm *PersistenceManager) ApplyRetentionPolicy(days int) ([]string, error) {
	if days < 0 {
		return nil, fmt.Errorf("retention days must be non-negative, got %d", days)
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()

	now := pm.now().UTC()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)

	entries, err := os.ReadDir(filepath.Join(pm.dir, ncfDirName))
	if err != nil {
		return nil, fmt.Errorf("failed to list day files: %w", err)
	}

	var removed []string
	var errs []error
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, dayFilePrefix) || !strings.HasSuffix(name, dayFileSuffix) {
			continue
		}
		day, err := time.Parse(dayLayout, strings.TrimSuffix(strings.TrimPrefix(name, dayFilePrefix), dayFileSuffix))
		if err != nil {
			pm.log.Warn("Ignoring file with unparsable date", zap.String("file", name))
			continue
		}
		if !day.Before(cutoff) {
			continue
		}
		path := filepath.Join(pm.dir, ncfDirName, name)
		if err := os.Remove(path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, path)
		pm.log.Info("Deleted expired day file", zap.String("path", path))
	}

	if n := pm.events.DeleteBefore(cutoff); n > 0 {
		pm.log.Info("Dropped expired events", zap.Int("events", n), zap.Time("cutoff", cutoff))
	}
	return removed, errors.Join(errs...)
}

// Start saves every SaveInterval, and applies the retention policy after each
// save when RetentionDays is positive, until Stop is called or ctx ends.
func (pm *PersistenceManager) Start(ctx context.Context) {
	if pm.interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	pm.mu.Lock()
	pm.cancel = cancel
	pm.done = done
	pm.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(pm.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// SaveAll logs its own failure; retention runs either way.
				_ = pm.SaveAll()
				if pm.retention > 0 {
					if _, err := pm.ApplyRetentionPolicy(pm.retention); err != nil {
						pm.log.Error("Failed to apply retention policy", zap.Error(err))
					}
				}
			}
		}
	}()
	pm.log.Info("Started periodic save", zap.Duration("interval", pm.interval))
}

// Stop ends the periodic save loop and writes everything one last time.
func (pm *PersistenceManager) Stop() error {
	pm.mu.Lock()
	cancel, done := pm.cancel, pm.done
	pm.cancel, pm.done = nil, nil
	pm.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return pm.SaveAll()
}

// writeAtomic writes path through a temporary file in the same directory so
// readers never observe a partial file.
func writeAtomic(path string, write func(*os.File) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
