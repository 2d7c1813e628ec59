package sequence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ogsystems/og-sequence-core/internal/multizone"
)

// Config bounds the engine. Zero values fall back to package defaults.
type Config struct {
	MaxCommandLength  int
	MaxWaitSeconds    float64
	MaxCaptures       int
	ParseBudget       time.Duration
	MaxRecursionDepth int
	MaxSequenceLength int
	CacheSize         int
	WaitSlice         time.Duration
	AckTimeout        time.Duration
	ZoneAckTimeout    time.Duration
	SuccessKeywords   []string
	ErrorKeywords     []string
}

// DefaultCacheSize bounds each internal cache when none is configured.
const DefaultCacheSize = 256

// Manager is the engine facade: it owns the sequence and button tables,
// the flag store, validation, expansion, search, and run control.
//
// At most one execution is in flight at a time; the transport is a
// single serial channel and interleaved runs would corrupt the device
// dialogue. Synchronous and asynchronous runs share the same slot.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Manager struct {
	mu sync.RWMutex

	sequences map[string][]string
	buttons   map[string]string

	flags     *FlagStore
	parser    *Parser
	validator *Validator
	expander  *Expander
	searcher  *Searcher
	zones     *multizone.Manager
	transport Transport
	collector *ResponseCollector
	acks      *AckClassifier

	cfg    Config
	logger Logger
	repo   ExecutionRepository

	// worker is the current async run, nil when none was ever started.
	worker *Worker
	token  *CancellationToken

	// running guards the single execution slot for sync and async runs.
	running bool

	stats ExecutionStats

	onStarted  func(executionID, source string, total int)
	onCommand  func(executionID string, result CommandResult)
	onFinished func(executionID string, state WorkerState, message string, results []CommandResult)
}

// NewManager creates an engine over the given transport and zone manager.
func NewManager(cfg Config, transport Transport, zones *multizone.Manager) *Manager {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if len(cfg.SuccessKeywords) == 0 {
		cfg.SuccessKeywords = []string{"ok", "done", "complete"}
	}
	if len(cfg.ErrorKeywords) == 0 {
		cfg.ErrorKeywords = []string{"error", "fail", "err"}
	}

	parser := NewParser(ParserConfig{
		MaxCommandLength: cfg.MaxCommandLength,
		MaxWaitSeconds:   cfg.MaxWaitSeconds,
		MaxCaptures:      cfg.MaxCaptures,
		ParseBudget:      cfg.ParseBudget,
	})

	return &Manager{
		sequences: make(map[string][]string),
		buttons:   make(map[string]string),
		flags:     NewFlagStore(),
		parser:    parser,
		validator: NewValidator(parser, cfg.MaxSequenceLength, cfg.CacheSize),
		expander:  NewExpander(cfg.MaxRecursionDepth, cfg.CacheSize),
		searcher:  NewSearcher(parser, cfg.CacheSize),
		zones:     zones,
		transport: transport,
		collector: NewResponseCollector(),
		acks:      NewAckClassifier(cfg.SuccessKeywords, cfg.ErrorKeywords),
		cfg:       cfg,
		logger:    noopLogger{},
		token:     NewCancellationToken(),
	}
}

// SetLogger sets the logger for engine events.
func (m *Manager) SetLogger(logger Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if logger != nil {
		m.logger = logger
	}
}

// SetRepository sets the execution audit trail store. Optional; without
// one the engine keeps no history.
func (m *Manager) SetRepository(repo ExecutionRepository) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repo = repo
}

// SetOnStarted sets the run-started callback, invoked outside locks.
func (m *Manager) SetOnStarted(callback func(executionID, source string, total int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStarted = callback
}

// SetOnCommand sets the per-command callback, invoked outside locks.
func (m *Manager) SetOnCommand(callback func(executionID string, result CommandResult)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCommand = callback
}

// SetOnFinished sets the run-finished callback, invoked outside locks.
func (m *Manager) SetOnFinished(callback func(executionID string, state WorkerState, message string, results []CommandResult)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFinished = callback
}

// HandleResponse feeds one device response line into the ack pipeline.
// Wired to the transport's inbound topic.
func (m *Manager) HandleResponse(line string) {
	m.collector.Add(line)
}

// ─── Sequence Table ───

// AddSequence stores a new named sequence.
func (m *Manager) AddSequence(name string, commands []string) error {
	if name == "" {
		return ErrInvalidName
	}
	if len(commands) == 0 {
		return ErrEmptySequence
	}

	m.mu.Lock()
	if _, exists := m.sequences[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSequenceExists, name)
	}
	m.sequences[name] = copyCommands(commands)
	m.mu.Unlock()

	m.invalidate(name)
	m.logger.Info("sequence added", "name", name, "commands", len(commands))
	return nil
}

// UpdateSequence replaces an existing sequence's commands.
func (m *Manager) UpdateSequence(name string, commands []string) error {
	if len(commands) == 0 {
		return ErrEmptySequence
	}

	m.mu.Lock()
	if _, exists := m.sequences[name]; !exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSequenceNotFound, name)
	}
	m.sequences[name] = copyCommands(commands)
	m.mu.Unlock()

	m.invalidate(name)
	m.logger.Info("sequence updated", "name", name, "commands", len(commands))
	return nil
}

// RemoveSequence deletes a sequence. Cached expansions that depended on
// it are evicted.
func (m *Manager) RemoveSequence(name string) error {
	m.mu.Lock()
	if _, exists := m.sequences[name]; !exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSequenceNotFound, name)
	}
	delete(m.sequences, name)
	m.mu.Unlock()

	m.invalidate(name)
	m.logger.Info("sequence removed", "name", name)
	return nil
}

// GetSequence returns a copy of a sequence's commands.
func (m *Manager) GetSequence(name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	commands, exists := m.sequences[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSequenceNotFound, name)
	}
	return copyCommands(commands), nil
}

// ListSequences returns all sequence names, sorted.
func (m *Manager) ListSequences() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeysSeq(m.sequences)
}

// ─── Button Table ───

// AddButton stores a new named button command.
func (m *Manager) AddButton(name, command string) error {
	if name == "" {
		return ErrInvalidName
	}
	if command == "" {
		return ErrEmptySequence
	}

	m.mu.Lock()
	if _, exists := m.buttons[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrButtonExists, name)
	}
	m.buttons[name] = command
	m.mu.Unlock()

	m.invalidate(name)
	m.logger.Info("button added", "name", name)
	return nil
}

// UpdateButton replaces an existing button's command.
func (m *Manager) UpdateButton(name, command string) error {
	if command == "" {
		return ErrEmptySequence
	}

	m.mu.Lock()
	if _, exists := m.buttons[name]; !exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrButtonNotFound, name)
	}
	m.buttons[name] = command
	m.mu.Unlock()

	m.invalidate(name)
	m.logger.Info("button updated", "name", name)
	return nil
}

// RemoveButton deletes a button.
func (m *Manager) RemoveButton(name string) error {
	m.mu.Lock()
	if _, exists := m.buttons[name]; !exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrButtonNotFound, name)
	}
	delete(m.buttons, name)
	m.mu.Unlock()

	m.invalidate(name)
	m.logger.Info("button removed", "name", name)
	return nil
}

// GetButton returns a button's command.
func (m *Manager) GetButton(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	command, exists := m.buttons[name]
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrButtonNotFound, name)
	}
	return command, nil
}

// ListButtons returns all button names, sorted.
func (m *Manager) ListButtons() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.buttons))
	for name := range m.buttons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ─── Flags ───

// SetFlag sets a named flag.
func (m *Manager) SetFlag(name string, value bool) {
	m.flags.SetFlag(name, value)
	m.logger.Debug("flag set", "name", name, "value", value)
}

// GetFlag returns a flag's value. Unset flags are false.
func (m *Manager) GetFlag(name string) bool {
	return m.flags.GetFlag(name)
}

// ClearFlag removes a flag.
func (m *Manager) ClearFlag(name string) {
	m.flags.ClearFlag(name)
}

// Flags returns a copy of every set flag.
func (m *Manager) Flags() map[string]bool {
	return m.flags.Flags()
}

// ─── Validation, Expansion, Search ───

// ValidateCommand classifies one command.
func (m *Manager) ValidateCommand(command string) ValidationOutcome {
	return m.validator.ValidateCommand(command)
}

// ValidateCommands checks a command list for validity and structure.
func (m *Manager) ValidateCommands(commands []string) (bool, []string) {
	return m.validator.ValidateSequence(commands)
}

// ValidateSequence checks a stored sequence by name.
func (m *Manager) ValidateSequence(name string) (bool, []string, error) {
	commands, err := m.GetSequence(name)
	if err != nil {
		return false, nil, err
	}
	valid, problems := m.validator.ValidateSequence(commands)
	return valid, problems, nil
}

// Expand flattens a stored sequence's nested references.
func (m *Manager) Expand(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expander.Expand(name, m.sequences, m.buttons)
}

// Search returns the names whose definition matches the query.
func (m *Manager) Search(query string) []string {
	return m.searcher.Search(query)
}

// SearchByKind returns the names containing a command of the given kind.
func (m *Manager) SearchByKind(kind CommandKind) []string {
	return m.searcher.SearchByKind(kind)
}

// Suggest returns up to max name completions for a partial name.
func (m *Manager) Suggest(partial string, max int) []string {
	return m.searcher.Suggest(partial, max)
}

// ─── Execution ───

// ExecuteSequence expands a stored sequence and runs it synchronously.
func (m *Manager) ExecuteSequence(ctx context.Context, name string) ([]CommandResult, error) {
	m.mu.RLock()
	_, exists := m.sequences[name]
	m.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSequenceNotFound, name)
	}
	return m.Execute(ctx, m.Expand(name), name)
}

// Execute runs a command list synchronously, blocking until the run
// reaches a terminal state.
//
// Parameters:
//   - ctx: Bounds the run
//   - commands: Flat command list
//   - source: Label for the audit trail and events
//
// Returns:
//   - []CommandResult: One entry per processed command
//   - error: Nil on success; ErrBusy, ErrCancelled or a failure cause
func (m *Manager) Execute(ctx context.Context, commands []string, source string) ([]CommandResult, error) {
	if len(commands) == 0 {
		return nil, ErrEmptySequence
	}
	if err := m.acquireRun(); err != nil {
		return nil, err
	}
	defer m.releaseRun()

	executionID := uuid.NewString()
	record := m.beginRun(ctx, executionID, source, "sync", len(commands))

	executor := m.newExecutor()
	if onCommand := m.commandCallback(); onCommand != nil {
		executor.SetOnCommandExecuted(func(result CommandResult) { onCommand(executionID, result) })
	}

	started := time.Now()
	results, err := executor.Execute(ctx, commands, m.token)
	m.finishRun(ctx, record, results, err, time.Since(started))
	if err != nil && !errors.Is(err, ErrGated) {
		return results, err
	}
	return results, nil
}

// ExecuteAsync starts a background run and returns its execution id.
func (m *Manager) ExecuteAsync(ctx context.Context, commands []string, source string) (string, error) {
	if len(commands) == 0 {
		return "", ErrEmptySequence
	}
	if err := m.acquireRun(); err != nil {
		return "", err
	}

	executionID := uuid.NewString()
	record := m.beginRun(ctx, executionID, source, "async", len(commands))

	executor := m.newExecutor()
	worker := NewWorker(executor, m.token)
	if onCommand := m.commandCallback(); onCommand != nil {
		executor.SetOnCommandExecuted(func(result CommandResult) {
			worker.recordResult(result)
			onCommand(executionID, result)
		})
	}

	started := time.Now()
	worker.SetOnFinished(func(state WorkerState, message string, results []CommandResult) {
		var err error
		switch state {
		case WorkerCancelled:
			err = ErrCancelled
		case WorkerFailed:
			err = errors.New(message)
		}
		m.releaseRun()
		m.finishRun(context.Background(), record, results, err, time.Since(started))
	})

	m.mu.Lock()
	m.worker = worker
	m.mu.Unlock()

	if err := worker.Start(ctx, commands); err != nil {
		m.releaseRun()
		return "", err
	}
	return executionID, nil
}

// ExecuteSequenceAsync expands a stored sequence and starts it in the
// background.
func (m *Manager) ExecuteSequenceAsync(ctx context.Context, name string) (string, error) {
	m.mu.RLock()
	_, exists := m.sequences[name]
	m.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrSequenceNotFound, name)
	}
	return m.ExecuteAsync(ctx, m.Expand(name), name)
}

// Pause suspends the current background run at the next command boundary.
func (m *Manager) Pause() error {
	worker := m.currentWorker()
	if worker == nil {
		return ErrNoExecution
	}
	return worker.Pause()
}

// Resume continues a paused background run.
func (m *Manager) Resume() error {
	worker := m.currentWorker()
	if worker == nil {
		return ErrNoExecution
	}
	return worker.Resume()
}

// Cancel stops the current run. Works for both sync and async runs.
func (m *Manager) Cancel() error {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return ErrNoExecution
	}
	m.token.Cancel()
	return nil
}

// Progress returns the current background run's position.
func (m *Manager) Progress() (Progress, bool) {
	worker := m.currentWorker()
	if worker == nil {
		return Progress{State: WorkerIdle}, false
	}
	return worker.Progress(), true
}

// Statistics returns a snapshot of table sizes, run counters and caches.
func (m *Manager) Statistics() Statistics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Statistics{
		Sequences:  len(m.sequences),
		Buttons:    len(m.buttons),
		Flags:      m.flags.Len(),
		Executions: m.stats,
		Caches: map[string]CacheStats{
			"validation": m.validator.Stats(),
			"expansion":  m.expander.Stats(),
			"search":     m.searcher.Stats(),
		},
	}
}

// ─── Internals ───

func (m *Manager) acquireRun() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrBusy
	}
	m.running = true
	m.token.Reset()
	m.stats.Started++
	return nil
}

func (m *Manager) releaseRun() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

func (m *Manager) newExecutor() *Executor {
	executor := NewExecutor(m.transport, m.zones, m.parser, m.flags, m.collector, m.acks, ExecutorConfig{
		WaitSlice:      m.cfg.WaitSlice,
		AckTimeout:     m.cfg.AckTimeout,
		ZoneAckTimeout: m.cfg.ZoneAckTimeout,
	})
	executor.SetLogger(m.logger)
	return executor
}

func (m *Manager) currentWorker() *Worker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.worker
}

func (m *Manager) commandCallback() func(string, CommandResult) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onCommand
}

// beginRun records the run start in the audit trail and fires the
// started callback.
func (m *Manager) beginRun(ctx context.Context, executionID, source, mode string, total int) *ExecutionRecord {
	record := &ExecutionRecord{
		ID:            executionID,
		Source:        source,
		Mode:          mode,
		Status:        ExecutionRunning,
		CommandsTotal: total,
		StartedAt:     time.Now().UTC(),
	}

	m.mu.RLock()
	repo := m.repo
	onStarted := m.onStarted
	m.mu.RUnlock()

	if repo != nil {
		if err := repo.CreateExecution(ctx, record); err != nil {
			m.logger.Warn("failed to record execution start", "id", executionID, "error", err)
		}
	}
	m.logger.Info("execution started", "id", executionID, "source", source, "mode", mode, "commands", total)
	if onStarted != nil {
		onStarted(executionID, source, total)
	}
	return record
}

// finishRun closes out the audit trail record, updates counters and
// fires the finished callback.
func (m *Manager) finishRun(ctx context.Context, record *ExecutionRecord, results []CommandResult, err error, elapsed time.Duration) {
	completed := time.Now().UTC()
	durationMS := elapsed.Milliseconds()

	state := WorkerCompleted
	message := "completed"
	status := ExecutionCompleted
	switch {
	case err == nil:
	case errors.Is(err, ErrGated):
		message = "stopped by gate"
	case errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled):
		state = WorkerCancelled
		status = ExecutionCancelled
		message = "cancelled"
	default:
		state = WorkerFailed
		status = ExecutionFailed
		message = err.Error()
	}

	var failed int
	for _, result := range results {
		if !result.Success {
			failed++
		}
	}

	record.Status = status
	record.CommandsCompleted = len(results) - failed
	record.CommandsFailed = failed
	record.Results = results
	record.Message = message
	record.CompletedAt = &completed
	record.DurationMS = &durationMS

	m.mu.Lock()
	switch status {
	case ExecutionCompleted:
		m.stats.Completed++
	case ExecutionFailed:
		m.stats.Failed++
	case ExecutionCancelled:
		m.stats.Cancelled++
	}
	m.stats.LastDuration = elapsed
	repo := m.repo
	onFinished := m.onFinished
	m.mu.Unlock()

	if repo != nil {
		if updateErr := repo.UpdateExecution(ctx, record); updateErr != nil {
			m.logger.Warn("failed to record execution finish", "id", record.ID, "error", updateErr)
		}
	}
	m.logger.Info("execution finished", "id", record.ID, "status", string(status), "duration_ms", durationMS)
	if onFinished != nil {
		onFinished(record.ID, state, message, results)
	}
}

// invalidate evicts derived state after a table mutation.
func (m *Manager) invalidate(name string) {
	m.expander.Invalidate(name)

	m.mu.RLock()
	sequences := make(map[string][]string, len(m.sequences))
	for k, v := range m.sequences {
		sequences[k] = v
	}
	buttons := make(map[string]string, len(m.buttons))
	for k, v := range m.buttons {
		buttons[k] = v
	}
	m.mu.RUnlock()

	m.searcher.Rebuild(sequences, buttons)
}

func sortedKeysSeq(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
