package logger

import (
	"time"

	"go.uber.org/zap"
)

type Field = zap.Field

func StringField(key, value string) Field {
	return zap.String(key, value)
}

func ErrorField(key string, err error) Field {
	return zap.NamedError(key, err)
}

func AnyField(key string, value interface{}) Field {
	return zap.Any(key, value)
}

func IntField(key string, value int) Field {
	return zap.Int(key, value)
}

func Uint64Field(key string, value uint64) Field {
	return zap.Uint64(key, value)
}

func DurationField(key string, value time.Duration) Field {
	return zap.Duration(key, value)
}

func BoolField(key string, value bool) Field {
	return zap.Bool(key, value)
}
