// Package errutil runs fallible operations and logs their failures in one place.
package errutil

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/guildsettings/pkg/log"
)

// HandleDiscordError executes fn and logs any error as a Discord failure.
// The error is returned unmodified.
func HandleDiscordError(operation string, fn func() error) error {
	if fn == nil {
		return fmt.Errorf("nil function provided")
	}

	err := fn()
	if err == nil {
		return nil
	}

	attrs := []any{"operation", operation, "error", err}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		attrs = append(attrs, "status", rest.Response.StatusCode)
		if rest.Message != nil {
			attrs = append(attrs, "code", rest.Message.Code)
		}
	}
	log.ErrorLoggerRaw().Error("Discord operation failed", attrs...)
	return err
}

// HandleConfigError executes fn and logs any error as a configuration or
// storage failure, wrapping it with the operation and path.
func HandleConfigError(operation, path string, fn func() error) error {
	if fn == nil {
		return fmt.Errorf("nil function provided")
	}

	err := fn()
	if err == nil {
		return nil
	}

	log.ErrorLoggerRaw().Error("Config operation failed", "operation", operation, "path", path, "error", err)
	return fmt.Errorf("config %s %s: %w", operation, path, err)
}

// IsUnknownMessage reports whether err is Discord's "Unknown Message" error,
// returned when the message was already deleted.
func IsUnknownMessage(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownMessage
}
