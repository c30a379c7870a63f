package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type PostHandler struct {
	s   service.PostService
	now func() time.Time
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service, now: time.Now}
}

// postView adds the overdue hint to the stored post.
type postView struct {
	*models.Post
	Overdue bool `json:"overdue"`
}

func (h *PostHandler) view(p *models.Post) postView {
	return postView{Post: p, Overdue: p.IsOverdue(h.now())}
}

// CreatePost accepts either a JSON body or a multipart form carrying the
// same fields plus the media files under "files".
func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var (
		req     transfer.PostCreation
		uploads []service.MediaUpload
	)

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			slog.Error(err.Error())
			return badRequest(c, "Unable to parse form")
		}
		if err := parsePostForm(form, &req); err != nil {
			return badRequest(c, err.Error())
		}
		uploads, err = readUploads(form.File["files"])
		if err != nil {
			slog.Error(err.Error())
			return badRequest(c, "Unable to read uploaded files")
		}
	} else if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Unable to parse request body")
	}

	post, err := h.s.CreatePost(c.Context(), &req, uploads)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.view(post))
}

func parsePostForm(form *multipart.Form, req *transfer.PostCreation) error {
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	req.Content = value("content")
	req.Hashtags = splitList(value("hashtags"))
	req.TargetAccounts = splitList(value("target_accounts"))

	if s := value("scheduled_at"); s != "" {
		at, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "scheduled_at must be an RFC 3339 timestamp")
		}
		req.ScheduledAt = &at
	}
	if s := value("publish_now"); s != "" {
		now, err := strconv.ParseBool(s)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "publish_now must be a boolean")
		}
		req.PublishNow = now
	}
	if s := value("media_meta"); s != "" {
		if err := json.Unmarshal([]byte(s), &req.MediaMeta); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "media_meta must be a JSON array")
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func readUploads(files []*multipart.FileHeader) ([]service.MediaUpload, error) {
	uploads := make([]service.MediaUpload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, service.MediaUpload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	status := models.PostStatus(c.Query("status"))

	posts, err := h.s.List(c.Context(), status)
	if err != nil {
		return errorResponse(c, err)
	}

	views := make([]postView, 0, len(posts))
	for _, p := range posts {
		views = append(views, h.view(p))
	}
	return c.Status(fiber.StatusOK).JSON(views)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.s.PostInfo(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(h.view(post))
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	if err := h.s.Remove(c.Context(), c.Params("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PublishPost publishes a draft or scheduled post now. A post handed to the
// queue comes back unchanged with 202; an inline publish returns the
// finished post.
func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	post, err := h.s.PublishNow(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	status := fiber.StatusOK
	if !post.Status.Terminal() {
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(h.view(post))
}
