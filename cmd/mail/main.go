package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/telesalud/shift-sync/backend/internal/config"
	"github.com/telesalud/shift-sync/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

// mailKinds 描述每种邮件使用的模板和主题
var mailKinds = map[string]struct {
	template string
	subject  string
}{
	domain.MailDeclarationReviewed: {
		template: "./templates/declaration_reviewed_email.html",
		subject:  "排班同步系统 - 可用性申报已审核",
	},
	domain.MailSyncReport: {
		template: "./templates/sync_report_email.html",
		subject:  "排班同步系统 - 同步结果需要处理",
	},
}

// errTransient 表示发送失败但消息可以重新入队
var errTransient = errors.New("邮件暂时无法发送")

type worker struct {
	client *mail.Client
	from   string
	logger *slog.Logger
}

// buildMessage 根据队列中的消息构建邮件，消息本身有问题时返回的错误不可重试
func (w *worker) buildMessage(body []byte) (*mail.Msg, error) {
	mailMessage := domain.MailMessage{}
	if err := json.Unmarshal(body, &mailMessage); err != nil {
		return nil, fmt.Errorf("邮件信息反序列化失败: %w", err)
	}

	kind, ok := mailKinds[mailMessage.Type]
	if !ok {
		return nil, fmt.Errorf("不支持的邮件类型 %q", mailMessage.Type)
	}

	m := mail.NewMsg()
	if err := m.From(w.from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := m.To(mailMessage.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}

	tmpl, err := template.ParseFiles(kind.template)
	if err != nil {
		return nil, fmt.Errorf("无法解析邮件模板: %w", err)
	}
	if err := m.SetBodyHTMLTemplate(tmpl, mailMessage.Data); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}
	m.Subject(kind.subject)

	return m, nil
}

func (w *worker) handle(body []byte) error {
	m, err := w.buildMessage(body)
	if err != nil {
		return err
	}

	if err := w.client.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: %v", errTransient, err)
	}

	return nil
}

func (w *worker) run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Error("消息通道已关闭")
				return
			}

			if err := w.handle(msg.Body); err != nil {
				requeue := errors.Is(err, errTransient)
				w.logger.Error("邮件处理失败", slog.String("error", err.Error()), slog.Bool("requeue", requeue))
				_ = msg.Nack(false, requeue)
				continue
			}

			_ = msg.Ack(false)
		}
	}
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 创建邮件客户端
	 **********************************************/
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		logger.Error("无法创建邮件客户端", slog.String("error", err.Error()))
		return
	}
	defer client.Close()

	dialCtx, cancelDial := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancelDial()
	if err := client.DialWithContext(dialCtx); err != nil {
		logger.Error("无法连接到邮件服务器", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接 RabbitMQ 并开始消费
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	// 与 API 声明的队列参数必须一致
	q, err := ch.QueueDeclare("email_queue", true, false, false, false, nil)
	if err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	// 一次只处理一封邮件，发送失败重新入队时不会积压在本地
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Error("无法设置预取数量", slog.String("error", err.Error()))
		return
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		return
	}

	w := &worker{
		client: client,
		from:   cfg.Email.SMTP.Username,
		logger: logger,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.run(ctx, msgs)
	}()

	logger.Info("等待消息...（按 CTRL+C 退出）")
	<-sigChan

	logger.Info("正在关闭 mail worker...")
	cancel()
	wg.Wait()
	logger.Info("mail worker 已成功关闭")
}
