package replication

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/flashcache/flashcache/pkg/ajan/logfx"
)

// DefaultFirstSlavePort is the port the first spawned slave process binds
// its own admin listener to (it has no effect on the replication TCP port,
// which slaves dial out on rather than listen on); each subsequent slave
// takes the next port.
const DefaultFirstSlavePort = 7001

// reservedSlavePortRange bounds the admin ports CleanupZombies scans for
// slave processes orphaned by a previous supervisor run (one that crashed
// or was killed without stopping its children first).
const reservedSlavePortRange = 1000

// killGrace is how long StopSlave waits after SIGTERM before escalating to
// SIGKILL.
const killGrace = 5 * time.Second

// SlaveSupervisor spawns flashcache-slave processes as children, tracks
// their lifecycle, and provides the failure-injection primitives the
// admin/debug surface exposes (killing a process outright, vs. merely
// severing its replication socket via Master.DisconnectSlave).
type SlaveSupervisor struct {
	binaryPath string
	masterAddr string
	logger     *logfx.Logger

	mu        sync.Mutex
	nextPort  int
	processes map[string]*supervisedProcess
}

type supervisedProcess struct {
	id   string
	port int
	cmd  *exec.Cmd
}

func NewSlaveSupervisor(binaryPath string, masterAddr string, logger *logfx.Logger) *SlaveSupervisor {
	return &SlaveSupervisor{
		binaryPath: binaryPath,
		masterAddr: masterAddr,
		logger:     logger,

		nextPort:  DefaultFirstSlavePort,
		processes: make(map[string]*supervisedProcess),
	}
}

// AddSlaves spawns n new slave processes and returns their assigned IDs.
// A spawn failure partway through returns the IDs started so far alongside
// the error; it does not roll back processes already spawned.
func (sup *SlaveSupervisor) AddSlaves(n int) ([]string, error) {
	sup.mu.Lock()
	defer sup.mu.Unlock()

	ids := make([]string, 0, n)

	for i := 0; i < n; i++ {
		port := sup.nextPort
		sup.nextPort++

		id := "slave-" + strconv.Itoa(port)

		cmd := exec.Command( //nolint:gosec
			sup.binaryPath,
			"--id", id,
			"--master-addr", sup.masterAddr,
			"--admin-addr", ":"+strconv.Itoa(port),
		)

		if err := cmd.Start(); err != nil {
			return ids, fmt.Errorf("spawn slave process %s: %w", id, err)
		}

		sup.processes[id] = &supervisedProcess{id: id, port: port, cmd: cmd}
		ids = append(ids, id)

		sup.logger.InfoContext(context.Background(), "spawned slave process", "slave_id", id, "pid", cmd.Process.Pid, "port", port)
	}

	return ids, nil
}

// StopSlave asks a slave process to shut down gracefully (SIGTERM), falling
// back to SIGKILL if it hasn't exited within killGrace.
func (sup *SlaveSupervisor) StopSlave(id string) error {
	sup.mu.Lock()
	proc, ok := sup.processes[id]
	sup.mu.Unlock()

	if !ok {
		return fmt.Errorf("replication: slave %q: %w", id, ErrNotConnected)
	}

	return sup.stopProcess(proc)
}

func (sup *SlaveSupervisor) stopProcess(proc *supervisedProcess) error {
	if proc.cmd.Process == nil {
		return nil
	}

	if err := proc.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal slave process %s: %w", proc.id, err)
	}

	done := make(chan error, 1)

	go func() { done <- proc.cmd.Wait() }()

	select {
	case <-done:
		return nil
	case <-time.After(killGrace):
		if err := proc.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("kill slave process %s: %w", proc.id, err)
		}

		<-done

		return nil
	}
}

// KillProcess hard-kills a slave process immediately (SIGKILL, no grace
// period), simulating an abrupt crash rather than a clean shutdown.
func (sup *SlaveSupervisor) KillProcess(id string) error {
	sup.mu.Lock()
	proc, ok := sup.processes[id]
	sup.mu.Unlock()

	if !ok {
		return fmt.Errorf("replication: slave %q: %w", id, ErrNotConnected)
	}

	if proc.cmd.Process == nil {
		return nil
	}

	if err := proc.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("kill slave process %s: %w", id, err)
	}

	return nil
}

// RemoveSlave stops the process (if still running) and forgets it.
func (sup *SlaveSupervisor) RemoveSlave(id string) error {
	sup.mu.Lock()
	proc, ok := sup.processes[id]
	sup.mu.Unlock()

	if !ok {
		return fmt.Errorf("replication: slave %q: %w", id, ErrNotConnected)
	}

	err := sup.stopProcess(proc)

	sup.mu.Lock()
	delete(sup.processes, id)
	sup.mu.Unlock()

	return err
}

// StopAllSlaves stops every tracked process, collecting and returning the
// first error encountered (if any) after attempting all of them.
func (sup *SlaveSupervisor) StopAllSlaves() error {
	sup.mu.Lock()
	procs := make([]*supervisedProcess, 0, len(sup.processes))
	for _, proc := range sup.processes {
		procs = append(procs, proc)
	}
	sup.mu.Unlock()

	var firstErr error

	for _, proc := range procs {
		if err := sup.stopProcess(proc); err != nil && firstErr == nil {
			firstErr = err
		}

		sup.mu.Lock()
		delete(sup.processes, proc.id)
		sup.mu.Unlock()
	}

	return firstErr
}

// CleanupZombies reaps two distinct kinds of zombie slave: (1) a process
// this supervisor spawned that has since exited on its own without going
// through StopSlave/RemoveSlave, and (2) a slave process left running by a
// previous supervisor instance that crashed or was killed before it could
// stop its children — found by scanning the reserved slave port range and
// matching by command line, since this supervisor's in-memory map has no
// record of a process it never spawned. Returns the IDs cleaned up.
func (sup *SlaveSupervisor) CleanupZombies() []string {
	sup.mu.Lock()

	var cleaned []string

	tracked := make(map[int]struct{}, len(sup.processes))

	for id, proc := range sup.processes {
		if proc.cmd.Process == nil {
			continue
		}

		// A non-blocking wait reports (and reaps) a child that has exited;
		// it returns 0 while the child is still running. An error means the
		// child was already reaped, e.g. by StopSlave.
		var status syscall.WaitStatus

		if wpid, err := syscall.Wait4(proc.cmd.Process.Pid, &status, syscall.WNOHANG, nil); err != nil || wpid != 0 {
			delete(sup.processes, id)
			cleaned = append(cleaned, id)

			sup.logger.InfoContext(context.Background(), "cleaned up zombie slave", "slave_id", id)

			continue
		}

		tracked[proc.cmd.Process.Pid] = struct{}{}
	}

	sup.mu.Unlock()

	for _, pid := range sup.findOrphanedSlaveProcesses(tracked) {
		if err := killPID(pid); err != nil {
			sup.logger.WarnContext(
				context.Background(), "failed to kill orphaned slave process",
				"pid", pid, "error", err,
			)

			continue
		}

		id := "orphan-" + strconv.Itoa(pid)
		cleaned = append(cleaned, id)

		sup.logger.InfoContext(
			context.Background(), "killed orphaned slave process from a previous supervisor run",
			"pid", pid,
		)
	}

	return cleaned
}

// findOrphanedSlaveProcesses scans /proc for processes in the reserved
// slave port range whose command line names this supervisor's slave binary,
// but whose PID isn't one this supervisor instance spawned itself. On a
// platform without /proc, it simply finds nothing, which is no worse than
// the self-tracked reaping above.
func (sup *SlaveSupervisor) findOrphanedSlaveProcesses(tracked map[int]struct{}) []int {
	procRoot, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}

	var orphaned []int

	for _, ent := range procRoot {
		pid, err := strconv.Atoi(ent.Name())
		if err != nil {
			continue
		}

		if _, isTracked := tracked[pid]; isTracked {
			continue
		}

		cmdline, err := os.ReadFile(filepath.Join("/proc", ent.Name(), "cmdline"))
		if err != nil {
			continue
		}

		if sup.looksLikeOrphanedSlave(strings.Split(strings.TrimRight(string(cmdline), "\x00"), "\x00")) {
			orphaned = append(orphaned, pid)
		}
	}

	return orphaned
}

// looksLikeOrphanedSlave reports whether argv names this supervisor's slave
// binary and passes an --admin-addr port inside the reserved slave range.
func (sup *SlaveSupervisor) looksLikeOrphanedSlave(argv []string) bool {
	if len(argv) == 0 || !strings.Contains(argv[0], filepath.Base(sup.binaryPath)) {
		return false
	}

	for i, arg := range argv {
		if arg != "--admin-addr" || i+1 >= len(argv) {
			continue
		}

		port, ok := adminPortFromArg(argv[i+1])

		return ok && port >= DefaultFirstSlavePort && port < DefaultFirstSlavePort+reservedSlavePortRange
	}

	return false
}

func adminPortFromArg(addr string) (int, bool) {
	_, portStr, found := strings.Cut(addr, ":")
	if !found {
		return 0, false
	}

	port, err := strconv.Atoi(portStr)

	return port, err == nil
}

func killPID(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}

	if err := proc.Kill(); err != nil {
		return fmt.Errorf("kill process %d: %w", pid, err)
	}

	return nil
}

// IDs returns the currently tracked slave process IDs.
func (sup *SlaveSupervisor) IDs() []string {
	sup.mu.Lock()
	defer sup.mu.Unlock()

	ids := make([]string, 0, len(sup.processes))
	for id := range sup.processes {
		ids = append(ids, id)
	}

	return ids
}
