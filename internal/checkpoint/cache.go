package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/fileutil"
	"scribe/internal/logging"
	"scribe/internal/textutil"
)

// Stage names a checkpointed pipeline step.
type Stage string

const (
	// StageRaw holds the primary transcription output.
	StageRaw Stage = "raw"
	// StageRepaired holds segments after quality repair.
	StageRepaired Stage = "repaired"
	// StageCorrected holds corrected paragraphs and the tokens they cost.
	StageCorrected Stage = "corrected"
)

// Key identifies the work a checkpoint belongs to.
type Key struct {
	SourceID string
	Mode     string
	Backend  string
}

// String returns the filesystem-safe key prefix.
func (k Key) String() string {
	return textutil.JoinKey(k.SourceID, k.Mode, k.Backend)
}

type envelope struct {
	Key      string          `json:"key"`
	Stage    Stage           `json:"stage"`
	CachedAt time.Time       `json:"cached_at"`
	Payload  json.RawMessage `json:"payload"`
}

// Cache stores checkpoints in a directory. An empty directory disables it.
type Cache struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// New creates a cache rooted at dir.
func New(dir string, logger *slog.Logger) *Cache {
	return &Cache{
		dir:    strings.TrimSpace(dir),
		logger: logging.NewComponentLogger(logger, "checkpoint"),
		now:    time.Now,
	}
}

// Path returns the file backing key and stage.
func (c *Cache) Path(key Key, stage Stage) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s.json", key, stage))
}

// Load decodes the checkpoint into target and reports whether one existed.
func (c *Cache) Load(key Key, stage Stage, target any) bool {
	if c == nil || c.dir == "" || key.SourceID == "" {
		return false
	}
	path := c.Path(key, stage)
	var env envelope
	if err := fileutil.ReadJSON(path, &env); err != nil {
		if !fileutil.IsNotExist(err) {
			c.warnCorrupt(path, err)
		}
		return false
	}
	if env.Stage != stage || len(env.Payload) == 0 {
		c.warnCorrupt(path, errors.New("stage mismatch or empty payload"))
		return false
	}
	if err := json.Unmarshal(env.Payload, target); err != nil {
		c.warnCorrupt(path, err)
		return false
	}
	c.logger.Debug("checkpoint loaded",
		logging.String("key", key.String()),
		logging.String(logging.FieldStage, string(stage)),
		logging.Event("checkpoint_hit"),
	)
	return true
}

// Store writes value as the checkpoint for key and stage.
func (c *Cache) Store(key Key, stage Stage, value any) error {
	if c == nil || c.dir == "" {
		return nil
	}
	if key.SourceID == "" {
		return errors.New("checkpoint key requires a source id")
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("ensure cache dir: %w", err)
	}
	env := envelope{Key: key.String(), Stage: stage, CachedAt: c.now().UTC(), Payload: payload}
	if err := fileutil.WriteJSON(c.Path(key, stage), env); err != nil {
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	return nil
}

// Invalidate removes every stage for key.
func (c *Cache) Invalidate(key Key) error {
	if c == nil || c.dir == "" {
		return nil
	}
	var errs []error
	for _, stage := range []Stage{StageRaw, StageRepaired, StageCorrected} {
		if err := os.Remove(c.Path(key, stage)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Cache) warnCorrupt(path string, err error) {
	logging.WarnWithContext(c.logger, "checkpoint unreadable; recomputing stage", "checkpoint_corrupt",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "delete the file if the problem persists"),
		logging.String(logging.FieldImpact, "stage is recomputed"),
	)
}
