package telegram

import (
	"errors"
	"strings"

	"github.com/tbourn/tg-message-logger/internal/services"
	"github.com/tbourn/tg-message-logger/internal/utils"
)

const (
	exportCommand = "export_messages"

	usageText = "Usage: /export_messages <username_or_userid> [chat_id] [start_iso] [end_iso] [limit]\n" +
		"limit 0, none or all exports every match; omit it for the default cap."

	argErrorText = "Error parsing arguments. Ensure chat_id and limit are integers; " +
		"timestamps are ISO strings. Use '-' to skip optional values."
)

var errNoArgs = errors.New("no arguments")

// parseExportArgs maps the positional command arguments
//
//	<username_or_userid> [chat_id] [start_iso] [end_iso] [limit]
//
// onto an ExportRequest. "-" skips an optional value; a limit of "none",
// "all" or "0" asks for every match. Timestamps are validated later by the
// export service. Extra trailing arguments are ignored.
func parseExportArgs(raw string) (services.ExportRequest, error) {
	args := strings.Fields(raw)
	if len(args) == 0 {
		return services.ExportRequest{}, errNoArgs
	}

	req := services.ExportRequest{Identity: args[0]}
	opt := func(i int) (string, bool) {
		if len(args) > i && args[i] != "-" {
			return args[i], true
		}
		return "", false
	}

	if v, ok := opt(1); ok {
		id, err := utils.OptionalInt64(v)
		if err != nil {
			return services.ExportRequest{}, err
		}
		req.ChatID = id
	}
	if v, ok := opt(2); ok {
		req.Start = &v
	}
	if v, ok := opt(3); ok {
		req.End = &v
	}
	if v, ok := opt(4); ok {
		n, err := utils.ParseLimit(v)
		if err != nil {
			return services.ExportRequest{}, err
		}
		if *n < 0 {
			return services.ExportRequest{}, services.ErrInvalidLimit
		}
		req.Limit = n
	}
	return req, nil
}
