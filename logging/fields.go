package logging

import (
	"time"

	"go.uber.org/zap"
)

// Shared field constructors so packages do not import zap directly.

func Bool(key string, val bool) zap.Field {
	return zap.Bool(key, val)
}

func Duration(key string, val time.Duration) zap.Field {
	return zap.Duration(key, val)
}

func Error(val error) zap.Field {
	return zap.Error(val)
}

func Float64(key string, val float64) zap.Field {
	return zap.Float64(key, val)
}

func Int(key string, val int) zap.Field {
	return zap.Int(key, val)
}

func Int64(key string, val int64) zap.Field {
	return zap.Int64(key, val)
}

func String(key string, val string) zap.Field {
	return zap.String(key, val)
}

func Stringer(key string, val interface{ String() string }) zap.Field {
	return zap.String(key, val.String())
}

func Time(key string, val time.Time) zap.Field {
	return zap.Time(key, val)
}

func Uint64(key string, val uint64) zap.Field {
	return zap.Uint64(key, val)
}
