package handlers

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/tg-message-logger/internal/domain"
	"github.com/tbourn/tg-message-logger/internal/services"
	"github.com/tbourn/tg-message-logger/internal/sysutil"
	"github.com/tbourn/tg-message-logger/internal/utils"
)

// ExportMessagesResponse is the JSON body of a non-download export.
type ExportMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
	Count    int              `json:"count" example:"2"`
}

// ExportMessages godoc
// @ID          exportMessages
// @Summary     Export a user's logged messages
// @Description Returns the messages sent by a user (numeric id or @username) in allowed chats, newest first.
// @Description Supports weak ETags; send If-None-Match to receive 304 when nothing new was logged.
// @Tags        Messages
// @Security    BearerAuth
// @Produce     json
// @Param       identity  path   string  true   "Numeric user id or username (leading @ optional)"
// @Param       chat_id   query  int     false  "Restrict to one chat"
// @Param       start     query  string  false  "Inclusive lower bound (YYYY-MM-DD or RFC3339)"
// @Param       end       query  string  false  "Inclusive upper bound (YYYY-MM-DD or RFC3339)"
// @Param       limit     query  string  false  "Max rows; 0, none or all for unbounded"
// @Param       download  query  bool    false  "Return the bare JSON array as an attachment"
// @Success     200  {object}  handlers.ExportMessagesResponse
// @Success     304  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid filter"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or unknown token"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Export failed"
// @Router      /users/{identity}/messages [get]
func (h *Handlers) ExportMessages(c *gin.Context) {
	req, err := exportRequestFrom(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	ctx := c.Request.Context()

	count, maxID, err := h.exportSvc.Fingerprint(ctx, req)
	if err != nil {
		h.exportError(c, err)
		return
	}
	etag := exportETag(req.Identity, c.Request.URL.Query(), count, maxID)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "private, no-cache")
	if etagMatches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}

	msgs, err := h.exportSvc.Export(ctx, req)
	if err != nil {
		h.exportError(c, err)
		return
	}

	if sysutil.IsTruthy(c.Query("download")) {
		body, err := services.MarshalExport(msgs)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeExportFailed, "failed to encode export")
			return
		}
		okDocument(c, body, services.ExportFilename(req.Identity))
		return
	}

	if msgs == nil {
		msgs = []domain.Message{}
	}
	ok(c, http.StatusOK, ExportMessagesResponse{Messages: msgs, Count: len(msgs)})
}

func (h *Handlers) exportError(c *gin.Context, err error) {
	if services.IsInvalidRequest(err) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	fail(c, http.StatusInternalServerError, ErrCodeExportFailed, "export failed")
}

func exportRequestFrom(c *gin.Context) (services.ExportRequest, error) {
	req := services.ExportRequest{
		Identity: strings.TrimSpace(c.Param("identity")),
		Start:    utils.OptionalString(c.Query("start")),
		End:      utils.OptionalString(c.Query("end")),
	}
	if req.Identity == "" {
		return req, services.ErrInvalidIdentity
	}
	chatID, err := utils.OptionalInt64(c.Query("chat_id"))
	if err != nil {
		return req, errors.New("chat_id must be an integer")
	}
	req.ChatID = chatID
	limit, err := utils.ParseLimit(c.Query("limit"))
	if err != nil {
		return req, errors.New("limit must be an integer, none or all")
	}
	req.Limit = limit
	return req, nil
}

// exportETag builds a weak validator from the request shape and the current
// match count and newest id. Rows are append-only, so a new match always
// changes one of the two.
func exportETag(identity string, q url.Values, count, maxID int64) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(services.IdentityKey(identity)))
	_, _ = h.Write([]byte{0})
	// Encode sorts by key.
	_, _ = h.Write([]byte(q.Encode()))
	return fmt.Sprintf(`W/"export-%x-%d-%d"`, h.Sum64(), count, maxID)
}

// etagMatches reports whether an If-None-Match header matches etag using weak
// comparison.
func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, part := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(part), "W/") == want {
			return true
		}
	}
	return false
}
