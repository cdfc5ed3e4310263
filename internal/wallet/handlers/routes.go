package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes mounts the entire wallet HTTP surface under r: one
// nested r.Route per resource group, auth enforced by a single middleware
// wrapping everything below /wallet.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/wallet", func(r chi.Router) {
		r.Use(RequireAuth(h.sessionGate, h.log))

		// The event stream is long-lived and must not inherit the request
		// timeout the JSON endpoints below run under.
		r.Group(func(r chi.Router) {
			r.Get("/events/stream", h.HandleEventStream)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			h.registerJSONRoutes(r)
		})
	})
}

func (h *Handlers) registerJSONRoutes(r chi.Router) {
	r.Get("/user/{user_id}", h.HandleGetUserDashboard)

	r.Route("/manager", func(r chi.Router) {
		r.Post("/tree", h.HandleBuildTree)
		r.Post("/snapshot", h.HandleCreateSnapshot)
	})

	r.Route("/{user_id}", h.registerUserScopedRoutes)
}

// registerUserScopedRoutes mounts the per-user resource groups under
// /wallet/{user_id}.
func (h *Handlers) registerUserScopedRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.HandleCreateAccount)
		r.Get("/", h.HandleListAccounts)
		r.Patch("/{id}", h.HandleUpdateAccount)
		r.Delete("/{id}", h.HandleDeleteAccount)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", h.HandleCreateTransactions)
		r.Get("/page", h.HandleListTransactionsPage)
		r.Patch("/", h.HandleUpdateTransactions)
	})

	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.HandleCreateEvent)
		r.Post("/import", h.HandleImportEvents)
		r.Get("/", h.HandleListEvents)
		r.Patch("/{id}", h.HandleUpdateEvent)
		r.Delete("/{id}", h.HandleDeleteEvent)
	})

	r.Route("/metals", func(r chi.Router) {
		r.Post("/", h.HandleUpsertMetal)
		r.Get("/", h.HandleListMetals)
		r.Post("/{id}/sell", h.HandleSellMetal)
	})

	r.Route("/real-estates", func(r chi.Router) {
		r.Post("/", h.HandleCreateRealEstate)
		r.Get("/", h.HandleListRealEstates)
		r.Delete("/{id}", h.HandleDeleteRealEstate)
		r.Post("/{id}/sell", h.HandleSellRealEstate)
	})
	r.Post("/real-estate-prices", h.HandleCreateRealEstatePrice)

	r.Route("/debts", func(r chi.Router) {
		r.Post("/", h.HandleCreateDebt)
		r.Get("/", h.HandleListDebts)
		r.Delete("/{id}", h.HandleDeleteDebt)
	})

	r.Route("/recurring-expenses", func(r chi.Router) {
		r.Post("/", h.HandleCreateRecurringExpense)
		r.Get("/", h.HandleListRecurringExpenses)
		r.Delete("/{id}", h.HandleDeleteRecurringExpense)
	})

	r.Route("/year-goals", func(r chi.Router) {
		r.Post("/", h.HandleCreateYearGoal)
		r.Get("/", h.HandleListYearGoals)
		r.Delete("/{id}", h.HandleDeleteYearGoal)
	})

	r.Route("/notes", func(r chi.Router) {
		r.Post("/", h.HandleCreateUserNote)
		r.Get("/", h.HandleListUserNotes)
		r.Delete("/{id}", h.HandleDeleteUserNote)
	})
}
