package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"artgram/internal/queue"
)

const (
	// DefaultWorkerCount is the default number of worker goroutines
	DefaultWorkerCount = 2

	// DefaultBatchSize is the number of messages to read per batch
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for new messages
	DefaultBlockTimeout = 5 * time.Second

	// DefaultErrorBackoff is how long a worker waits after a failed read
	DefaultErrorBackoff = time.Second
)

// EventHandler handles one activity event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event queue.ActivityEvent) error
}

// Manager orchestrates worker goroutines that consume the activity stream.
type Manager struct {
	consumer     queue.Consumer
	handler      EventHandler
	stream       string
	group        string
	workerCount  int
	batchSize    int64
	blockTime    time.Duration
	errorBackoff time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerConfig holds configuration for the worker manager.
type ManagerConfig struct {
	WorkerCount  int           // Number of worker goroutines
	BatchSize    int64         // Messages per read
	BlockTimeout time.Duration // Block time for XREADGROUP
	ErrorBackoff time.Duration // Pause after a failed read
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
		ErrorBackoff: DefaultErrorBackoff,
	}
}

// NewManager creates a new worker manager.
func NewManager(consumer queue.Consumer, handler EventHandler, cfg ManagerConfig) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = DefaultErrorBackoff
	}

	return &Manager{
		consumer:     consumer,
		handler:      handler,
		stream:       queue.StreamActivity,
		group:        queue.ConsumerGroupCleanup,
		workerCount:  cfg.WorkerCount,
		batchSize:    cfg.BatchSize,
		blockTime:    cfg.BlockTimeout,
		errorBackoff: cfg.ErrorBackoff,
	}
}

// Start begins the worker goroutines.
// Call Stop() to gracefully shut down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, m.stream, m.group); err != nil {
		m.cancel()
		return err
	}

	log.Printf("[Manager] Starting %d workers for stream=%s group=%s",
		m.workerCount, m.stream, m.group)

	for i := 0; i < m.workerCount; i++ {
		workerID := i + 1
		m.wg.Add(1)
		go m.runWorker(workerID, consumerNameForWorker(workerID))
	}

	log.Printf("[Manager] All %d workers started", m.workerCount)
	return nil
}

// Stop gracefully shuts down all workers.
// Blocks until all workers have finished.
func (m *Manager) Stop() {
	log.Printf("[Manager] Stopping workers...")
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	log.Printf("[Manager] All workers stopped")
}

// runWorker is the main loop for a single worker goroutine.
func (m *Manager) runWorker(workerID int, consumerName string) {
	defer m.wg.Done()

	log.Printf("[Worker-%d] Started (consumer=%s)", workerID, consumerName)

	// Messages delivered before a crash are still pending for this consumer name.
	m.processPending(workerID, consumerName)

	for {
		select {
		case <-m.ctx.Done():
			log.Printf("[Worker-%d] Shutting down", workerID)
			return
		default:
			m.processMessages(workerID, consumerName)
		}
	}
}

// processPending handles messages that were delivered but not acknowledged.
func (m *Manager) processPending(workerID int, consumerName string) {
	for {
		messages, err := m.consumer.ReadPending(m.ctx, m.stream, m.group, consumerName, m.batchSize)
		if err != nil {
			log.Printf("[Worker-%d] Error reading pending: %v", workerID, err)
			return
		}
		if len(messages) == 0 {
			return
		}

		log.Printf("[Worker-%d] Processing %d pending messages", workerID, len(messages))
		m.handleMessages(workerID, messages)
	}
}

// processMessages reads and handles a batch of messages.
func (m *Manager) processMessages(workerID int, consumerName string) {
	messages, err := m.consumer.Read(m.ctx, m.stream, m.group, consumerName, m.batchSize, m.blockTime)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		log.Printf("[Worker-%d] Error reading: %v", workerID, err)
		select {
		case <-m.ctx.Done():
		case <-time.After(m.errorBackoff):
		}
		return
	}

	if len(messages) == 0 {
		return // Timeout, no messages
	}

	m.handleMessages(workerID, messages)
}

// handleMessages processes a batch of messages and acknowledges them.
func (m *Manager) handleMessages(workerID int, messages []queue.Message) {
	for _, msg := range messages {
		if err := m.handler.HandleEvent(m.ctx, msg.Event); err != nil {
			// Still ACK to prevent infinite retry loops; the object store can be swept offline.
			log.Printf("[Worker-%d] Handler error msgID=%s: %v", workerID, msg.ID, err)
		}

		if err := m.consumer.Ack(m.ctx, m.stream, m.group, msg.ID); err != nil {
			log.Printf("[Worker-%d] ACK error msgID=%s: %v", workerID, msg.ID, err)
		}
	}
}

// consumerNameForWorker generates a stable consumer name for each worker so
// a restarted process picks up its own pending messages.
func consumerNameForWorker(workerID int) string {
	return fmt.Sprintf("worker-%d", workerID)
}
