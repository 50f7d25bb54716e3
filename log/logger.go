package log

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level 日志级别
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// 级别标签与颜色
var (
	levelNames = map[Level]string{
		DebugLevel: "DEBUG",
		InfoLevel:  "INFO",
		WarnLevel:  "WARN",
		ErrorLevel: "ERROR",
		FatalLevel: "FATAL",
	}

	levelColors = map[Level]*color.Color{
		DebugLevel: color.New(color.FgCyan),
		InfoLevel:  color.New(color.FgGreen),
		WarnLevel:  color.New(color.FgYellow),
		ErrorLevel: color.New(color.FgRed),
		FatalLevel: color.New(color.FgRed, color.Bold),
	}
)

var (
	mu           sync.Mutex
	currentLevel = InfoLevel
)

// init 从环境变量读取日志级别
func init() {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		SetLevel(lvl)
	}
}

// ParseLevel 解析日志级别字符串
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, true
	case "info":
		return InfoLevel, true
	case "warn", "warning":
		return WarnLevel, true
	case "error":
		return ErrorLevel, true
	case "fatal":
		return FatalLevel, true
	default:
		return InfoLevel, false
	}
}

// SetLevel 设置日志级别，无法识别的值保持当前级别
func SetLevel(s string) {
	level, ok := ParseLevel(s)
	if !ok {
		return
	}
	mu.Lock()
	currentLevel = level
	mu.Unlock()
}

// GetLevel 获取当前日志级别
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return currentLevel
}

// logf 输出一条带时间戳和级别标签的日志
func logf(level Level, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if level < currentLevel {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	tag := levelColors[level].Sprintf("[%s]", levelNames[level])
	message := fmt.Sprintf(format, args...)

	fmt.Fprintf(os.Stdout, "%s %s %s\n", timestamp, tag, message)
}

// Debug 输出调试日志
func Debug(format string, args ...interface{}) {
	logf(DebugLevel, format, args...)
}

// Info 输出信息日志
func Info(format string, args ...interface{}) {
	logf(InfoLevel, format, args...)
}

// Warn 输出警告日志
func Warn(format string, args ...interface{}) {
	logf(WarnLevel, format, args...)
}

// Error 输出错误日志
func Error(format string, args ...interface{}) {
	logf(ErrorLevel, format, args...)
}

// Fatal 输出致命错误日志并退出进程
func Fatal(format string, args ...interface{}) {
	logf(FatalLevel, format, args...)
	os.Exit(1)
}
