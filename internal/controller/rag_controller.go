package controller

import (
	"io"

	"github.com/Hunter5Thompson/Alpha-01/internal/dto"
	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/serverutils"
	"github.com/Hunter5Thompson/Alpha-01/internal/service"
	"github.com/Hunter5Thompson/Alpha-01/pkg/rag/longform"

	"github.com/gofiber/fiber/v2"
)

type IRagController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
	ListDocumentChunks(ctx *fiber.Ctx) error
	Ask(ctx *fiber.Ctx) error
	Compose(ctx *fiber.Ctx) error
	DeleteDocument(ctx *fiber.Ctx) error
}

type ragController struct {
	ingestService service.IIngestService
	queryService  service.IQueryService
	writer        *longform.Writer
}

func NewRagController(
	ingestService service.IIngestService,
	queryService service.IQueryService,
	writer *longform.Writer,
) IRagController {
	return &ragController{
		ingestService: ingestService,
		queryService:  queryService,
		writer:        writer,
	}
}

func (c *ragController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/v1")
	h.Get("health", c.Health)
	h.Post("documents", c.Upload)
	h.Get("documents/:docId", c.ListDocumentChunks)
	h.Delete("documents/:docId", c.DeleteDocument)
	h.Post("ask", c.Ask)
	h.Post("compose", c.Compose)
}

func (c *ragController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("ok", map[string]string{"status": "healthy"}))
}

// Upload accepts one or more files and enqueues each for asynchronous
// ingestion. The response only confirms acceptance.
func (c *ragController) Upload(ctx *fiber.Ctx) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form required")
	}

	files := form.File["files"]
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no files provided")
	}

	accepted := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return err
		}

		if err := c.ingestService.Enqueue(ctx.Context(), fh.Filename, data); err != nil {
			return err
		}
		accepted = append(accepted, service.DocIdFromFilename(fh.Filename))
	}

	return ctx.Status(fiber.StatusAccepted).
		JSON(serverutils.SuccessResponse("Documents accepted for ingestion", accepted))
}

// ListDocumentChunks pages through the stored chunks of one document in
// document order.
func (c *ragController) ListDocumentChunks(ctx *fiber.Ctx) error {
	docId := ctx.Params("docId")
	if docId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "docId required")
	}

	limit := ctx.QueryInt("limit", 50)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.ingestService.ListDocumentChunks(ctx.Context(), docId, limit, offset)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list document chunks", res))
}

func (c *ragController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.queryService.Ask(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success answer question", res))
}

func (c *ragController) Compose(ctx *fiber.Ctx) error {
	var req dto.ComposeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.writer.Compose(ctx.Context(), req.Topic, req.Sections)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success compose document", res))
}

func (c *ragController) DeleteDocument(ctx *fiber.Ctx) error {
	docId := ctx.Params("docId")
	if docId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "docId required")
	}

	if err := c.ingestService.DeleteDocument(ctx.Context(), docId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete document", nil))
}
