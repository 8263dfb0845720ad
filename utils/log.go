package utils

import (
	"flag"
	"fmt"
	"io"
	"os"

	filename "github.com/keepeye/logrus-filename"
	log "github.com/sirupsen/logrus"
	prefixed "github.com/t-tomalak/logrus-prefixed-formatter"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logLevel        string
	logFilename     string
	logAlsoToStderr bool
)

func init() {
	flag.StringVar(&logLevel, "log_level", "info", "log level")
	flag.StringVar(&logFilename, "log_filename", "", "log filename")
	flag.BoolVar(&logAlsoToStderr, "log_also_to_stderr", false, "log also to stderr")
}

// InitLog wires up logrus the way the rest of this repo expects: a
// prefixed text formatter, the goroutine-tagged replication name as a
// field (see ReplicationHook), the call site filename, and optional
// rotation to disk via lumberjack.
func InitLog() {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		fmt.Printf("parse log level %v failed: %v\n", logLevel, err)
		os.Exit(1)
	}
	log.SetLevel(level)
	log.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
		ForceFormatting: true,
	})

	log.AddHook(NewReplicationHook())

	filenameHook := filename.NewHook()
	filenameHook.Field = "line"
	log.AddHook(filenameHook)

	if logFilename == "" {
		log.SetOutput(os.Stdout)
		return
	}

	output := &lumberjack.Logger{
		Filename:   logFilename,
		MaxSize:    1024, // MB
		MaxAge:     7,
		MaxBackups: 30,
		LocalTime:  true,
		Compress:   false,
	}
	if logAlsoToStderr {
		writer := io.MultiWriter(output, os.Stderr)
		log.SetOutput(writer)
	} else {
		log.SetOutput(output)
	}
}
