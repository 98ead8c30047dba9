package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tradeforgehq/tradeforge-backend/api/responses"
	"github.com/tradeforgehq/tradeforge-backend/api/validators"
	botsvc "github.com/tradeforgehq/tradeforge-backend/internal/bots"
	pkgerrors "github.com/tradeforgehq/tradeforge-backend/pkg/errors"
	"github.com/tradeforgehq/tradeforge-backend/pkg/logger"
	"github.com/tradeforgehq/tradeforge-backend/pkg/pagination"
)

// CreateBot provisions a trading bot, subject to the caller's plan quota.
func CreateBot(svc botsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bot service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body botsvc.CreateBotRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bot, err := svc.Create(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, bot)
	}
}

// ListBots returns the caller's bots with their performance snapshots.
func ListBots(svc botsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bot service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := botsvc.ListParams{Params: pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}}

		list, err := svc.List(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// GetBot returns a single bot the caller owns.
func GetBot(svc botsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bot service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		botID, err := pathUUID(r, "botID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bot, err := svc.Get(r.Context(), userID, botID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, bot)
	}
}

// DeleteBot removes a bot the caller owns.
func DeleteBot(svc botsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bot service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		botID, err := pathUUID(r, "botID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, botID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// StartBot transitions a bot to running and notifies the engine.
func StartBot(svc botsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return botTransition(svc, logg, botsvc.Service.Start)
}

// StopBot transitions a bot to stopped and notifies the engine.
func StopBot(svc botsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return botTransition(svc, logg, botsvc.Service.Stop)
}

func botTransition(
	svc botsvc.Service,
	logg *logger.Logger,
	transition func(botsvc.Service, context.Context, uuid.UUID, uuid.UUID) (*botsvc.BotDTO, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bot service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		botID, err := pathUUID(r, "botID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bot, err := transition(svc, r.Context(), userID, botID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, bot)
	}
}
