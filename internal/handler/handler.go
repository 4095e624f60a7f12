package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/telesalud/shift-sync/backend/internal/config"
	"github.com/telesalud/shift-sync/backend/internal/domain"
	"github.com/telesalud/shift-sync/backend/internal/repository"
	"github.com/telesalud/shift-sync/backend/internal/synchronizer"
)

var coordinatorRoles = []domain.Role{domain.RoleCoordinator, domain.RoleAdmin}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	references  synchronizer.References
	engine      *synchronizer.Engine
	translator  ut.Translator
	mailChannel *amqp.Channel

	Mux *chi.Mux
}

// NewHandler 中 mailCh 可以为空，此时不发送通知邮件
func NewHandler(cfg *config.Config, repo *repository.Repository, refs synchronizer.References, engine *synchronizer.Engine, mailCh *amqp.Channel) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		references:  refs,
		engine:      engine,
		translator:  trans,
		mailChannel: mailCh,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.myInfo)

		r.Get("/my-info", h.GetMyInfo)
		r.Get("/labor-regimes", h.GetAllLaborRegimes)

		r.Route("/declarations", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleProfessional})).Post("/", h.CreateDeclaration)
			r.Get("/", h.GetAllDeclarations)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.declaration)
				r.Get("/", h.GetDeclaration)

				// 医务人员只能修改自己的申报
				r.Group(func(r chi.Router) {
					r.Use(h.declarationOwner)
					r.Put("/shifts", h.PutShift)
					r.Delete("/shifts/{date}", h.DeleteShift)
					r.Post("/submit", h.SubmitDeclaration)
				})

				// 同步相关的内部信息只对协调员开放
				r.Group(func(r chi.Router) {
					r.Use(h.RequiredRole(coordinatorRoles))
					r.Post("/review", h.ReviewDeclaration)
					r.Post("/adjustments", h.AdjustShift)
					r.Post("/synchronize", h.Synchronize)
					r.Get("/consistency", h.ValidateConsistency)
					r.Get("/schedule", h.GetOperationalSchedule)
				})
			})
		})

		r.Route("/sync-logs", func(r chi.Router) {
			r.Use(h.RequiredRole(coordinatorRoles))
			r.Get("/", h.GetSyncLogs)
			r.Get("/{id}", h.GetSyncLog)
		})
	})
}
