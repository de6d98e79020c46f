package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "zest"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName        = "output"
	verboseFlagName       = "verbose"
	excludeFlagName       = "exclude"
	groupsFlagName        = "groups"
	excludeGroupsFlagName = "exclude-groups"
	allowFlagName         = "allow"
	bypassSkipFlagName    = "bypass-skip"
	includeDirsFlagName   = "include-dirs"
	seedFlagName          = "seed"
	disableShuffleFlag    = "disable-shuffle"
	runParallelFlagName   = "parallel"
	tmpRootFlagName       = "tmp-root"
	previewFlagName       = "preview"
	failedFlagName        = "failed"

	outputConfigKey         = "output.dir"
	verboseConfigKey        = "output.verbose"
	excludeConfigKey        = "select.exclude"
	groupsConfigKey         = "select.groups"
	excludeGroupsConfigKey  = "select.exclude_groups"
	allowConfigKey          = "select.allow"
	bypassSkipConfigKey     = "select.bypass_skip"
	includeDirsConfigKey    = "select.include_dirs"
	seedConfigKey           = "run.seed"
	disableShuffleConfigKey = "run.disable_shuffle"
	runParallelConfigKey    = "run.parallel"
	tmpRootConfigKey        = "run.tmp_root"

	defaultResultsDir     = ".zest_results"
	defaultVerbose        = 1
	defaultRunParallel    = 1
	defaultDisableShuffle = false

	envPrefix = "ZEST"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".zest.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputConfigKey, defaultResultsDir)
	viper.SetDefault(verboseConfigKey, defaultVerbose)
	viper.SetDefault(runParallelConfigKey, defaultRunParallel)
	viper.SetDefault(disableShuffleConfigKey, defaultDisableShuffle)
	viper.SetDefault(seedConfigKey, 0)
	viper.SetDefault(tmpRootConfigKey, "")
	viper.SetDefault(excludeConfigKey, "")
	viper.SetDefault(groupsConfigKey, []string{})
	viper.SetDefault(excludeGroupsConfigKey, []string{})
	viper.SetDefault(allowConfigKey, "")
	viper.SetDefault(bypassSkipConfigKey, []string{})
	viper.SetDefault(includeDirsConfigKey, []string{})

	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Debug("config file not loaded", "error", err)
		}
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at the configured level; debug forces Debug.
func configureLogger(logPath string, debug bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if debug {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
