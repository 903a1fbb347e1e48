package infra

import (
	"fmt"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// GoRecoverable runs job and restarts it after a panic. maxPanics bounds how
// many restarts are left: a negative value restarts without limit, zero means
// the budget is spent and the process exits on the next panic.
func GoRecoverable(maxPanics int, id string, job func()) {
	defer func() {
		err := recover()
		if err == nil {
			return
		}
		entry := log.WithField("context", "infra").WithField("job", id)
		entry.Errorf("job panics at %s: %v", identifyPanic(), err)
		if maxPanics == 0 {
			entry.Fatal("panic budget spent, exiting")
		}
		if maxPanics > 0 {
			maxPanics--
		}
		entry.WithField("panics_left", maxPanics).Debug("restarting job")
		go GoRecoverable(maxPanics, id, job)
	}()
	job()
}

// identifyPanic walks the stack past the runtime frames to the one that
// actually panicked.
func identifyPanic() string {
	var pc [16]uintptr
	n := runtime.Callers(3, pc[:])

	var name, file string
	var line int
	for _, caller := range pc[:n] {
		fn := runtime.FuncForPC(caller)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(caller)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			break
		}
	}

	switch {
	case name != "":
		return fmt.Sprintf("%s:%d", name, line)
	case file != "":
		return fmt.Sprintf("%s:%d", file, line)
	}
	return fmt.Sprintf("pc:%x", pc)
}
