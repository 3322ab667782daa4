// Package klog is the kernel's structured logging facade. It never
// participates in control flow — see spec.md §7: fallible APIs return
// Err_t, klog only narrates what happened for a human reading the boot
// console, matching biscuit's own fmt.Printf boot banner (mem.Phys_init)
// promoted to leveled, field-structured output.
package klog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Subsystem returns a logger pre-tagged with a "subsys" field, the unit
// every kernel component should log through.
func Subsystem(name string) *logrus.Entry {
	return base.WithField("subsys", name)
}

// SetLevel adjusts the global verbosity, e.g. for cmd/veridiand's
// --verbose flag.
func SetLevel(l logrus.Level) {
	base.SetLevel(l)
}
