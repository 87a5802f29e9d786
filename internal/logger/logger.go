package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process logger.
type Options struct {
	Level    string // debug, info, warn, error
	Format   string // console or json
	LogDir   string // when set, logs are also written to LogDir/<FileName> with rotation
	FileName string
	Compress bool
	Debug    bool // forces debug level
}

type state struct {
	base       *zap.SugaredLogger
	level      zapcore.Level
	resolver   *zap.SugaredLogger
	source     *zap.SugaredLogger
	solana     *zap.SugaredLogger
	telegram   *zap.SugaredLogger
	tool       *zap.SugaredLogger
	rotateSink *lumberjack.Logger
}

var current atomic.Pointer[state]

func init() {
	current.Store(newState(zap.NewNop(), zapcore.InfoLevel, nil))
}

func newState(l *zap.Logger, level zapcore.Level, sink *lumberjack.Logger) *state {
	l = l.WithOptions(zap.AddCallerSkip(1))
	return &state{
		base:       l.Sugar(),
		level:      level,
		resolver:   l.Named("resolver").Sugar(),
		source:     l.Named("source").Sugar(),
		solana:     l.Named("solana").Sugar(),
		telegram:   l.Named("telegram").Sugar(),
		tool:       l.Named("tool").Sugar(),
		rotateSink: sink,
	}
}

// Init initializes the logger. It may be called again to reconfigure.
func Init(opts Options) error {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(strings.ToLower(opts.Level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(opts.Format) {
	case "", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		return fmt.Errorf("invalid log format %q", opts.Format)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)}

	var sink *lumberjack.Logger
	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log dir %s: %w", opts.LogDir, err)
		}
		name := opts.FileName
		if name == "" {
			name = "tokenlens.log"
		}
		sink = &lumberjack.Logger{
			Filename:   filepath.Join(opts.LogDir, name),
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     14,
			Compress:   opts.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(sink), level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	prev := current.Swap(newState(l, level, sink))
	closeState(prev)

	Debug("Debug logging enabled")
	return nil
}

// UseNop discards all log output. Tests call this to keep output quiet.
func UseNop() {
	closeState(current.Swap(newState(zap.NewNop(), zapcore.InfoLevel, nil)))
}

// Sync flushes buffered entries and closes the rotating file, if any.
func Sync() error {
	s := current.Load()
	err := s.base.Sync()
	if s.rotateSink != nil {
		if cerr := s.rotateSink.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func closeState(s *state) {
	if s == nil {
		return
	}
	_ = s.base.Sync()
	if s.rotateSink != nil {
		_ = s.rotateSink.Close()
	}
}

// IsDebugEnabled returns whether debug logging is enabled
func IsDebugEnabled() bool {
	return current.Load().level.Enabled(zapcore.DebugLevel)
}

func Debug(format string, v ...interface{}) { current.Load().base.Debugf(format, v...) }
func Info(format string, v ...interface{})  { current.Load().base.Infof(format, v...) }
func Warn(format string, v ...interface{})  { current.Load().base.Warnf(format, v...) }
func Error(format string, v ...interface{}) { current.Load().base.Errorf(format, v...) }

func ResolverDebug(format string, v ...interface{}) { current.Load().resolver.Debugf(format, v...) }
func ResolverInfo(format string, v ...interface{})  { current.Load().resolver.Infof(format, v...) }
func ResolverWarn(format string, v ...interface{})  { current.Load().resolver.Warnf(format, v...) }

func SourceDebug(format string, v ...interface{}) { current.Load().source.Debugf(format, v...) }
func SourceWarn(format string, v ...interface{})  { current.Load().source.Warnf(format, v...) }

func SolanaDebug(format string, v ...interface{}) { current.Load().solana.Debugf(format, v...) }
func SolanaWarn(format string, v ...interface{})  { current.Load().solana.Warnf(format, v...) }

func TelegramDebug(format string, v ...interface{}) { current.Load().telegram.Debugf(format, v...) }
func TelegramInfo(format string, v ...interface{})  { current.Load().telegram.Infof(format, v...) }
func TelegramWarn(format string, v ...interface{})  { current.Load().telegram.Warnf(format, v...) }
func TelegramError(format string, v ...interface{}) { current.Load().telegram.Errorf(format, v...) }

func ToolDebug(format string, v ...interface{}) { current.Load().tool.Debugf(format, v...) }
func ToolWarn(format string, v ...interface{})  { current.Load().tool.Warnf(format, v...) }
func ToolError(format string, v ...interface{}) { current.Load().tool.Errorf(format, v...) }
