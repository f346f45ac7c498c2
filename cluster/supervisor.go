package cluster

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/KOMKZ/go-yogan-settings/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WorkerSpec describes one worker process
type WorkerSpec struct {
	ID   string
	Path string
	Args []string
	// Env defaults to the supervisor's environment; EnvWorkerID is always added
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Supervisor starts workers for a primary node and waits for them.
// If a worker fails, the context shared by the others is canceled.
type Supervisor struct {
	node   *Node
	logger *logger.CtxZapLogger
	ctx    context.Context
	group  *errgroup.Group
}

// NewSupervisor binds workers to node's hub
func NewSupervisor(ctx context.Context, node *Node, log *logger.CtxZapLogger) *Supervisor {
	if log == nil {
		log = logger.GetLogger("cluster")
	}
	g, gctx := errgroup.WithContext(ctx)
	return &Supervisor{node: node, logger: log, ctx: gctx, group: g}
}

// Spawn starts a worker and attaches its pipes to the hub
func (s *Supervisor) Spawn(spec WorkerSpec) error {
	hub := s.node.StreamHub()
	if hub == nil {
		return ErrSpawn.WithMsg("supervisor node is not a primary")
	}

	toWorkerR, toWorkerW, err := os.Pipe()
	if err != nil {
		return ErrSpawn.Wrap(err)
	}
	toPrimaryR, toPrimaryW, err := os.Pipe()
	if err != nil {
		closeAll(toWorkerR, toWorkerW)
		return ErrSpawn.Wrap(err)
	}

	env := spec.Env
	if env == nil {
		env = os.Environ()
	}

	cmd := exec.CommandContext(s.ctx, spec.Path, spec.Args...)
	cmd.Env = append(append([]string{}, env...), EnvWorkerID+"="+spec.ID)
	// fd 3 and fd 4 in the child
	cmd.ExtraFiles = []*os.File{toWorkerR, toPrimaryW}
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr

	if err := cmd.Start(); err != nil {
		closeAll(toWorkerR, toWorkerW, toPrimaryR, toPrimaryW)
		return ErrSpawn.Wrapf(err, "start worker %s failed", spec.ID)
	}
	// the child holds its own copies
	closeAll(toWorkerR, toPrimaryW)

	hub.Attach(spec.ID, toPrimaryR, toWorkerW)
	s.logger.Info("worker started", zap.String("worker_id", spec.ID), zap.Int("pid", cmd.Process.Pid))

	s.group.Go(func() error {
		err := cmd.Wait()
		_ = hub.Detach(spec.ID)
		if err != nil {
			s.logger.Error("worker exited", zap.String("worker_id", spec.ID), zap.Error(err))
			return ErrWorkerExited.Wrapf(err, "worker %s exited", spec.ID)
		}
		s.logger.Info("worker exited", zap.String("worker_id", spec.ID))
		return nil
	})
	return nil
}

// Wait blocks until every worker exited and returns the first failure
func (s *Supervisor) Wait() error {
	return s.group.Wait()
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
