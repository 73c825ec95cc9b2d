package logging

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// LoggerManager раздаёт логгеры компонентов (storage, streaming).
// Все логгеры пишут в один каталог и получают общий консольный уровень.
type LoggerManager struct {
	mu           sync.Mutex
	dir          string
	consoleLevel LogLevel
	loggers      map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// NewLoggerManager создаёт менеджер с файлами в dir
func NewLoggerManager(dir string) *LoggerManager {
	return &LoggerManager{
		dir:          dir,
		consoleLevel: INFO,
		loggers:      make(map[string]*Logger),
	}
}

// GetLoggerManager возвращает глобальный менеджер (каталог LogDir)
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = NewLoggerManager(LogDir)
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при первом запросе
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, exists := lm.loggers[component]; exists {
		return logger, nil
	}

	logger, err := NewLoggerInDir(lm.dir, component)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать логгер %s: %w", component, err)
	}
	logger.SetConsoleLevel(lm.consoleLevel)
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер компонента или глобальный при ошибке
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		return current()
	}
	return logger
}

// SetConsoleLevel задаёт консольный уровень текущим и будущим логгерам
func (lm *LoggerManager) SetConsoleLevel(level LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.consoleLevel = level
	for _, logger := range lm.loggers {
		logger.SetConsoleLevel(level)
	}
}

// SetLogLevel устанавливает уровни одного компонента
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.Lock()
	logger, exists := lm.loggers[component]
	lm.mu.Unlock()

	if !exists {
		return fmt.Errorf("логгер компонента %s не найден", component)
	}

	logger.mu.Lock()
	logger.minConsoleLevel = consoleLevel
	logger.minFileLevel = fileLevel
	logger.mu.Unlock()
	return nil
}

// ListComponents возвращает отсортированный список компонентов
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// CloseAll закрывает все логгеры и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("логгер %s: %w", component, err))
		}
	}
	lm.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

// GetComponentLogger логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetStreamingLogger() *Logger {
	return GetComponentLogger("streaming")
}

func GetStorageLogger() *Logger {
	return GetComponentLogger("storage")
}
