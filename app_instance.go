package main

import (
	"errors"
	"log/slog"
	"time"

	"ytm-desktop/internal/ipc"
	"ytm-desktop/internal/singleinstance"
)

var (
	tryLockFn           = singleinstance.TryLock
	sendActivationFn    = ipc.Send
	relaunchLockTimeout = 15 * time.Second
	relaunchLockPoll    = 250 * time.Millisecond
)

// acquireInstanceLock takes the single-instance lock. A process relaunched
// after an update waits for its predecessor to exit. Otherwise, when another
// instance runs, it is asked to activate and acquired reports false.
func acquireInstanceLock(opts launchOptions, args []string) (lock *singleinstance.Lock, acquired bool) {
	name := singleinstance.DefaultLockName()
	lock, err := tryLockFn(name)
	if opts.Relaunched {
		deadline := time.Now().Add(relaunchLockTimeout)
		for errors.Is(err, singleinstance.ErrAlreadyRunning) && time.Now().Before(deadline) {
			time.Sleep(relaunchLockPoll)
			lock, err = tryLockFn(name)
		}
	}

	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		slog.Info("[DEBUG-SINGLE] another instance is already running, signaling activation")
		resp, sendErr := sendActivationFn("", ipc.NewActivateRequest(args))
		switch {
		case sendErr != nil:
			slog.Warn("[DEBUG-SINGLE] failed to signal existing instance", "error", sendErr)
		case !resp.OK:
			slog.Warn("[DEBUG-SINGLE] existing instance refused activation", "error", resp.Error)
		}
		return nil, false
	}
	if err != nil {
		slog.Warn("[DEBUG-SINGLE] lock failed, proceeding without single-instance guard", "error", err)
		return nil, true
	}
	return lock, true
}
