package history

import (
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-uuid"

	"github.com/appforge/appforge/internal/interfaces"
	"github.com/appforge/appforge/pkg/logging"
)

// Store appends and lists deployment run records on a project document.
// Expired records are dropped lazily on every read and write rather than by a
// background sweep; the store is not high-frequency.
type Store struct {
	retention time.Duration
	clock     func() time.Time
	logger    *logging.Logger
}

// NewStore creates a run history store with the given retention window
func NewStore(retention time.Duration) *Store {
	return &Store{
		retention: retention,
		clock:     time.Now,
		logger:    logging.History,
	}
}

// WithClock overrides the store's time source, for tests
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

// RecordParams describes one completed deployment run
type RecordParams struct {
	EnvironmentID string
	Action        interfaces.DeploymentAction
	Status        interfaces.RunStatus
	Actor         string
	Summary       *interfaces.ChangeSummary
	Logs          []string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Record assigns a unique id, redacts every log line, stamps the retention
// deadline, and prepends the record to the document's history
func (s *Store) Record(doc *interfaces.ProjectDocument, params RecordParams) (*interfaces.DeploymentRunRecord, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run record id: %w", err)
	}

	now := s.clock()
	record := &interfaces.DeploymentRunRecord{
		ID:            "run-" + id,
		EnvironmentID: params.EnvironmentID,
		Action:        params.Action,
		Status:        params.Status,
		Actor:         params.Actor,
		Summary:       params.Summary,
		Logs:          RedactLines(params.Logs),
		StartedAt:     params.StartedAt,
		FinishedAt:    params.FinishedAt,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.retention),
	}

	doc.DeploymentRunHistory = append([]*interfaces.DeploymentRunRecord{record}, doc.DeploymentRunHistory...)
	s.Prune(doc)
	s.logger.Debug("recorded %s run %s for environment %s: %s", params.Action, record.ID, params.EnvironmentID, params.Status)
	return record, nil
}

// List returns unexpired records in descending createdAt order, optionally
// filtered by environment. An empty environmentID matches every environment.
func (s *Store) List(doc *interfaces.ProjectDocument, environmentID string) []*interfaces.DeploymentRunRecord {
	s.Prune(doc)

	records := make([]*interfaces.DeploymentRunRecord, 0, len(doc.DeploymentRunHistory))
	for _, record := range doc.DeploymentRunHistory {
		if environmentID != "" && record.EnvironmentID != environmentID {
			continue
		}
		records = append(records, record)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records
}

// Prune drops expired records from the document's history in place
func (s *Store) Prune(doc *interfaces.ProjectDocument) {
	now := s.clock()
	kept := doc.DeploymentRunHistory[:0]
	for _, record := range doc.DeploymentRunHistory {
		if record.ExpiresAt.After(now) {
			kept = append(kept, record)
		}
	}
	if dropped := len(doc.DeploymentRunHistory) - len(kept); dropped > 0 {
		s.logger.Debug("pruned %d expired run history records", dropped)
	}
	doc.DeploymentRunHistory = kept
}
