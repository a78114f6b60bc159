package gdpr

import (
	"errors"
	"fmt"

	"doflow-backend/internal/auth"
	"doflow-backend/internal/logger"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AnonymizeRequest struct {
	RetentionReason string `json:"retention_reason"`
}

type RectifyRequest struct {
	Corrections map[string]string `json:"corrections"`
}

// toHTTP maps service errors onto Italian API errors. Unknown errors are
// logged and reported as 500.
func toHTTP(c *fiber.Ctx, err error, op string) error {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Utente non trovato")
	case errors.Is(err, ErrSelfErasure):
		return fiber.NewError(fiber.StatusBadRequest, "Non puoi cancellare il tuo account")
	case errors.Is(err, ErrRetentionReason):
		return fiber.NewError(fiber.StatusBadRequest, "Motivo di conservazione non valido")
	case errors.Is(err, ErrNotRectifiable):
		return fiber.NewError(fiber.StatusBadRequest, "Campo non rettificabile")
	case errors.Is(err, ErrNoCorrections):
		return fiber.NewError(fiber.StatusBadRequest, "Nessuna correzione indicata")
	case errors.Is(err, ErrInvalidValue):
		return fiber.NewError(fiber.StatusBadRequest, "Valore non valido")
	case errors.Is(err, ErrAlreadyAnonymized):
		return fiber.NewError(fiber.StatusConflict, "Utente già anonimizzato")
	case errors.Is(err, ErrEmailTaken):
		return fiber.NewError(fiber.StatusConflict, "Email già registrata")
	}
	logger.From(c).Error().Err(err).Str("op", op).Msg("gdpr request failed")
	return fiber.NewError(fiber.StatusInternalServerError, "Richiesta non riuscita")
}

func userParam(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "ID utente non valido")
	}
	return uint(id), nil
}

func sendExport(c *fiber.Ctx, out Export) error {
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="dati-personali-%d.json"`, out.PersonalInfo.ID))
	return c.JSON(out)
}

// GET /api/gdpr/export
func ExportOwnHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		out, err := s.Export(c.UserContext(), actor.CompanyID, actor.UserID)
		if err != nil {
			return toHTTP(c, err, "export")
		}
		return sendExport(c, out)
	}
}

// GET /api/gdpr/users/:id/export
func ExportUserHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := userParam(c)
		if err != nil {
			return err
		}
		out, err := s.Export(c.UserContext(), actor.CompanyID, id)
		if err != nil {
			return toHTTP(c, err, "export")
		}
		return sendExport(c, out)
	}
}

// POST /api/gdpr/users/:id/anonymize
func AnonymizeHandler(db *gorm.DB, s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := userParam(c)
		if err != nil {
			return err
		}

		var body AnonymizeRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
			}
		}

		by := Requester{UserID: actor.UserID, Name: auth.UserName(db, actor.UserID)}
		out, err := s.Anonymize(c.UserContext(), actor.CompanyID, id, by, body.RetentionReason)
		if err != nil {
			return toHTTP(c, err, "anonymize")
		}
		logger.From(c).Info().Uint("user_id", id).Str("retention_reason", body.RetentionReason).Msg("personal data erased")

		return c.JSON(fiber.Map{
			"message": "Dati personali cancellati",
			"erasure": out,
		})
	}
}

// PUT /api/gdpr/users/:id/rectify
func RectifyHandler(db *gorm.DB, s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := userParam(c)
		if err != nil {
			return err
		}

		var body RectifyRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo della richiesta non valido")
		}

		by := Requester{UserID: actor.UserID, Name: auth.UserName(db, actor.UserID)}
		changes, err := s.Rectify(c.UserContext(), actor.CompanyID, id, by, body.Corrections)
		if err != nil {
			return toHTTP(c, err, "rectify")
		}

		return c.JSON(fiber.Map{
			"message": "Dati aggiornati",
			"changes": changes,
		})
	}
}
