package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fintrack-dev/fintrack/internal/importer"
	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/pipeline"
	"github.com/fintrack-dev/fintrack/internal/session"
)

// Detect classifies an uploaded PDF statement.
func (h *Handler) Detect(c *fiber.Ctx) error {
	name, data, err := readUpload(c)
	if err != nil {
		return err
	}
	kind, err := importer.KindOf(name)
	if err != nil {
		return err
	}
	if source, ok := importer.SourceForKind(kind); ok {
		return c.JSON(fiber.Map{"source": source, "method": "extension"})
	}
	res, err := h.svc.DetectFile(data)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(res)
}

// CreateImport parses an upload into a preview session.
func (h *Handler) CreateImport(c *fiber.Ctx) error {
	name, data, err := readUpload(c)
	if err != nil {
		return err
	}
	bank := strings.ToLower(strings.TrimSpace(c.FormValue("bank")))
	if kind, _ := importer.KindOf(name); bank == "" && kind == importer.KindPDF {
		bank = h.defaultBank
	}
	sess, err := h.svc.Upload(c.UserContext(), pipeline.UploadRequest{
		UserID:    userID(c),
		FileName:  name,
		Data:      data,
		Bank:      model.Source(bank),
		AccountID: strings.TrimSpace(c.FormValue("account_id")),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sess)
}

// GetImport returns a preview session.
func (h *Handler) GetImport(c *fiber.Ctx) error {
	sess, err := h.ownSession(c)
	if err != nil {
		return err
	}
	return c.JSON(sess)
}

// DeleteImport discards a session.
func (h *Handler) DeleteImport(c *fiber.Ctx) error {
	sess, err := h.ownSession(c)
	if err != nil {
		return err
	}
	if err := h.svc.Discard(c.UserContext(), sess.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateRecord applies a JSON patch to one preview record.
func (h *Handler) UpdateRecord(c *fiber.Ctx) error {
	sess, err := h.ownSession(c)
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "record index must be a number")
	}
	var patch pipeline.RecordPatch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	updated, err := h.svc.UpdateRecord(c.UserContext(), sess.ID, index, patch)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

type accountRequest struct {
	AccountID string `json:"accountId"`
}

// SetAccount chooses the destination account of a single-account import.
func (h *Handler) SetAccount(c *fiber.Ctx) error {
	sess, err := h.ownSession(c)
	if err != nil {
		return err
	}
	var req accountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	updated, err := h.svc.SetAccount(c.UserContext(), sess.ID, req.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

// MapAccounts merges {"file account name": "account id"} mappings.
func (h *Handler) MapAccounts(c *fiber.Ctx) error {
	sess, err := h.ownSession(c)
	if err != nil {
		return err
	}
	var mappings map[string]string
	if err := c.BodyParser(&mappings); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	updated, err := h.svc.MapAccounts(c.UserContext(), sess.ID, mappings)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

// Commit writes the selected records and returns the summary.
func (h *Handler) Commit(c *fiber.Ctx) error {
	sess, err := h.ownSession(c)
	if err != nil {
		return err
	}
	sum, err := h.svc.Commit(c.UserContext(), sess.ID)
	if err != nil {
		return err
	}
	return c.JSON(sum)
}

// ownSession loads the :id session, hiding sessions of other users.
func (h *Handler) ownSession(c *fiber.Ctx) (*session.Session, error) {
	sess, err := h.svc.Session(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID(c) {
		return nil, pipeline.ErrSessionNotFound
	}
	return sess, nil
}

func readUpload(c *fiber.Ctx) (string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "no file uploaded; use form field 'file'")
	}
	data, err := readFile(fh)
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, data, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return data, nil
}
