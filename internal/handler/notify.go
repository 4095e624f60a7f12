package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/telesalud/shift-sync/backend/internal/domain"
	"github.com/telesalud/shift-sync/backend/internal/synchronizer"
)

const mailQueue = "email_queue"

// publishMail 把邮件投递到消息队列，通知失败不影响业务操作的结果
func (h *Handler) publishMail(msg *domain.MailMessage) {
	if h.mailChannel == nil || msg.To == "" {
		return
	}

	mailData, err := json.Marshal(msg)
	if err != nil {
		slog.Error("无法序列化邮件", "type", msg.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := h.mailChannel.PublishWithContext(
		ctx,
		"",
		mailQueue,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        mailData,
		},
	); err != nil {
		slog.Error("无法投递邮件到消息队列", "type", msg.Type, "to", msg.To, "error", err)
	}
}

func (h *Handler) notifyDeclarationReviewed(ctx context.Context, decl *domain.AvailabilityDeclaration) {
	professional, err := h.repository.GetProfessional(ctx, decl.ProfessionalID)
	if err != nil {
		slog.Error("无法获取医务人员信息", "professionalID", decl.ProfessionalID, "error", err)
		return
	}

	h.publishMail(&domain.MailMessage{
		Type: domain.MailDeclarationReviewed,
		To:   professional.Email,
		Data: domain.DeclarationReviewedMailData{
			FullName:      professional.FullName,
			Period:        string(decl.Period),
			TotalHours:    decl.TotalHours.StringFixed(2),
			DeclarationID: decl.ID,
		},
	})
}

// notifySyncReport 只在同步结果不是 SUCCESS 时通知执行同步的协调员
func (h *Handler) notifySyncReport(coordinator *domain.User, decl *domain.AvailabilityDeclaration, result *synchronizer.SyncResult) {
	if result.Result == domain.OutcomeSuccess {
		return
	}

	errs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, e.Date.String()+" "+e.Message)
	}
	errs = append(errs, result.Warnings...)

	h.publishMail(&domain.MailMessage{
		Type: domain.MailSyncReport,
		To:   coordinator.Email,
		Data: domain.SyncReportMailData{
			FullName:      coordinator.FullName,
			DeclarationID: decl.ID,
			Period:        string(decl.Period),
			Result:        result.Result.String(),
			Summary:       result.Summary,
			Errors:        errs,
		},
	})
}

// notifySyncAborted 在同步中止时通知协调员，此时没有同步结果
func (h *Handler) notifySyncAborted(coordinator *domain.User, decl *domain.AvailabilityDeclaration, err error) {
	h.publishMail(&domain.MailMessage{
		Type: domain.MailSyncReport,
		To:   coordinator.Email,
		Data: domain.SyncReportMailData{
			FullName:      coordinator.FullName,
			DeclarationID: decl.ID,
			Period:        string(decl.Period),
			Result:        domain.OutcomeFailed.String(),
			Summary:       "同步中止，排班表未做任何修改",
			Errors:        []string{err.Error()},
		},
	})
}
