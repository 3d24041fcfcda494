package snapshots

import (
	"fmt"
	"sync/atomic"
	"time"

	fifo "github.com/foize/go.fifo"
	"github.com/pnode-analytics/pnodelogger/database/models"
	"go.uber.org/zap"
)

const idleWait = 50 * time.Millisecond

type writer interface {
	AddSnapshot(data *models.NodeSnapshot) error
}

type InsertQueue struct {
	insert  *fifo.Queue
	writer  writer
	logger  *zap.Logger
	started atomic.Bool
	closed  atomic.Bool
}

func NewInsertQueue(w writer, logger *zap.Logger) *InsertQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsertQueue{
		insert: fifo.NewQueue(),
		writer: w,
		logger: logger,
	}
}

// Add puts data in the queue; it is written to the DB whenever the worker
// gets to it, so bursts of snapshots never block the caller.
func (i *InsertQueue) Add(data *models.NodeSnapshot) {
	i.insert.Add(data)
}

func (i *InsertQueue) Len() int {
	return i.insert.Len()
}

func (i *InsertQueue) Start() error {
	if i.closed.Load() {
		return fmt.Errorf("queue is already closed")
	}
	if !i.started.CompareAndSwap(false, true) {
		return fmt.Errorf("queue is already started")
	}
	go func() {
		for !i.closed.Load() {

			item := i.insert.Next()
			if item == nil {
				// Queue is empty, keep waiting
				time.Sleep(idleWait)
				continue
			}

			data := item.(*models.NodeSnapshot)
			if err := i.writer.AddSnapshot(data); err != nil {
				i.logger.Error(fmt.Sprintf("async insert: %v\n\t data: %#v", err, data))
			}
		}
	}()
	return nil
}

func (i *InsertQueue) Stop() {
	i.closed.Store(true)
}
