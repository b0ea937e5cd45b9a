package sfh

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gabriel-vasile/mimetype"

	"sfh-go/internal/model"
)

// Analyzer is one worker in the pool. It dequeues discovered entries
// and drives the decision pipeline: dedup, archive expansion, content
// match, path match, name match. Failures are caught per entry; a bad
// entry never terminates the worker.
type Analyzer struct {
	id     int
	db     Database
	rules  *RuleSet
	expand *ArchiveExpander
	logger Logger

	processed int
	failed    int
}

// NewAnalyzer creates an analyzer worker. The id is assigned by the
// caller at construction and only used for log attribution.
func NewAnalyzer(id int, db Database, rules *RuleSet, expander *ArchiveExpander, logger Logger) *Analyzer {
	return &Analyzer{
		id:     id,
		db:     db,
		rules:  rules,
		expand: expander,
		logger: logger,
	}
}

// Run consumes the queue until it is closed. Every dequeued entry is
// acknowledged exactly once, successful or not.
func (a *Analyzer) Run(q *WorkQueue) {
	for {
		e, ok := q.Get()
		if !ok {
			return
		}
		if err := a.Analyze(e); err != nil {
			a.failed++
			a.logger.Error("analysis failed", "worker", a.id, "path", e.String(), "error", err)
		} else {
			a.processed++
		}
		q.Done()
	}
}

// Stats returns the number of successfully processed and failed
// entries so far.
func (a *Analyzer) Stats() (processed, failed int) {
	return a.processed, a.failed
}

// Analyze runs the decision pipeline for one entry. Archive children
// are processed through an explicit work list rather than recursion so
// that nesting depth is bounded by MaxArchiveDepth, not the stack.
func (a *Analyzer) Analyze(e *Entry) error {
	work := []*Entry{e}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]

		children, err := a.analyzeOne(cur)
		if err != nil {
			return err
		}
		work = append(work, children...)
	}
	return nil
}

// analyzeOne analyzes a single entry and returns any archive children
// that must re-enter the pipeline. Steps short-circuit in order:
// dedup, archive expansion, content match, full-path match, file-name
// match; an entry matching nothing is discarded.
func (a *Analyzer) analyzeOne(e *Entry) ([]*Entry, error) {
	// Oversize entries never have content hashed or content-matched;
	// only their path and name can flag them.
	if e.Oversize {
		if !a.matchNames(e, e.Placeholder()) {
			a.logger.Debug("ignoring file", "threshold", "above", "size", e.SizeBytes, "path", e.String())
		}
		return nil, nil
	}

	content, err := e.Bytes()
	if err != nil {
		return nil, err
	}
	digest := Digest(content)

	existing, err := a.db.FindFileByDigest(e.Target.Workspace, digest)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Known content: link this path to the stored file and stop.
		// No rule evaluation is repeated for deduplicated content.
		return nil, a.db.RecordFinding(a.finding(e, existing, nil))
	}

	if a.expand.CanExpand(e) {
		children, err := a.expand.Expand(e)
		if err == nil {
			return children, nil
		}
		// A corrupt or non-decodable archive falls through to ordinary
		// content and name analysis of the archive file itself.
		a.logger.Warn("archive expansion failed", "path", e.String(), "error", err)
	}

	if rule := a.rules.Evaluate(e, content, model.SearchFileContent); rule != nil {
		a.logger.Info("match", "path", e.String(), "rule", rule.String())
		return nil, a.db.RecordFinding(a.finding(e, a.storedFile(e, content, digest), rule))
	}

	if !a.matchNames(e, content) {
		a.logger.Debug("ignoring file", "threshold", "below", "size", e.SizeBytes, "path", e.String())
	}
	return nil, nil
}

// matchNames evaluates full-path rules, then file-name rules, persists
// the first match and reports whether one was found. content is the
// byte payload to store when a rule matches (real content or the
// oversize placeholder).
func (a *Analyzer) matchNames(e *Entry, content []byte) bool {
	for _, location := range []model.SearchLocation{model.SearchFullPath, model.SearchFileName} {
		if rule := a.rules.Evaluate(e, nil, location); rule != nil {
			a.logger.Info("match", "path", e.String(), "rule", rule.String())
			file := a.storedFile(e, content, Digest(content))
			if e.Oversize {
				// Record the true size, not the placeholder length.
				file.SizeBytes = e.SizeBytes
			}
			if err := a.db.RecordFinding(a.finding(e, file, rule)); err != nil {
				a.logger.Error("persisting finding", "path", e.String(), "error", err)
			}
			return true
		}
	}
	return false
}

func (a *Analyzer) storedFile(e *Entry, content []byte, digest string) *model.StoredFile {
	mtype := mimetype.Detect(content)
	return &model.StoredFile{
		Content:   content,
		SizeBytes: int64(len(content)),
		SHA256:    digest,
		FileType:  mtype.Extension(),
		MimeType:  mtype.String(),
		Review:    model.ReviewTBD,
	}
}

func (a *Analyzer) finding(e *Entry, file *model.StoredFile, rule *Rule) *Finding {
	return &Finding{
		Target:       e.Target,
		Share:        e.Share,
		FullPath:     e.FullPath,
		FileName:     e.FileName(),
		Extension:    e.Extension(),
		AccessTime:   e.AccessTime,
		ModifiedTime: e.ModifiedTime,
		CreationTime: e.CreationTime,
		File:         file,
		Rule:         rule,
	}
}

// Digest returns the hex SHA-256 of content, the dedup key for stored
// files within a workspace.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
