package notifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"suzu_discount/pkg/logger"
	"suzu_discount/pkg/metrics"
)

// AuditFunc 投递结果回写审计日志的钩子
// 由调用方注入，避免 notifier 直接依赖审计存储
type AuditFunc func(action, phone, details string)

// DeliveryTask 一条待投递的 WhatsApp 消息
type DeliveryTask struct {
	Phone   string
	Message string
	Retry   int // 重试次数
}

// Dispatcher 异步投递调度器
// 注册链路只入队不等待: 投递失败不会回滚已落库的注册记录，
// 由有界重试 + 备用通道兜底，最终失败进死信日志
type Dispatcher struct {
	TaskQueue  chan DeliveryTask
	RetryQueue chan DeliveryTask // 重试队列
	primary    Sender
	fallback   Sender
	WorkerNum  int
	MaxRetry   int // 主通道最大重试次数
	timeout    time.Duration
	retryDelay time.Duration
	audit      AuditFunc
}

func NewDispatcher(primary, fallback Sender, maxRetry, timeoutSeconds, workerNum, bufferSize int, audit AuditFunc) *Dispatcher {
	if maxRetry < 1 {
		maxRetry = 1
	}
	return &Dispatcher{
		TaskQueue:  make(chan DeliveryTask, bufferSize),
		RetryQueue: make(chan DeliveryTask, bufferSize/2),
		primary:    primary,
		fallback:   fallback,
		WorkerNum:  workerNum,
		MaxRetry:   maxRetry,
		timeout:    time.Duration(timeoutSeconds) * time.Second,
		retryDelay: time.Second,
		audit:      audit,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.WorkerNum; i++ {
		go d.worker(i)
	}
	// 启动重试处理协程
	go d.retryWorker()
	logger.Log.Info("Notifier dispatcher started",
		zap.Int("workers", d.WorkerNum),
		zap.String("primary", d.primary.Name()),
	)
}

// Dispatch 消息入队，队列满时丢弃并记死信
func (d *Dispatcher) Dispatch(phone, message string) {
	task := DeliveryTask{Phone: phone, Message: message}
	select {
	case d.TaskQueue <- task:
	default:
		logger.Log.Warn("Dispatcher queue full, dropping task", zap.String("phone", phone))
		d.logFailedTask(task, fmt.Errorf("queue full"))
	}
}

func (d *Dispatcher) worker(id int) {
	for task := range d.TaskQueue {
		if err := d.sendPrimary(task); err != nil {
			metrics.OTPDeliveries.WithLabelValues(d.primary.Name(), "failure").Inc()

			// 未达到最大重试次数时加入重试队列
			if task.Retry < d.MaxRetry-1 {
				task.Retry++
				select {
				case d.RetryQueue <- task:
				default:
					logger.Log.Warn("Retry queue full, falling back immediately",
						zap.Int("worker", id), zap.String("phone", task.Phone))
					d.sendFallback(task, err)
				}
			} else {
				d.sendFallback(task, err)
			}
			continue
		}

		metrics.OTPDeliveries.WithLabelValues(d.primary.Name(), "success").Inc()
		d.audit("OTP_SENT", task.Phone,
			fmt.Sprintf("WhatsApp message delivered via %s", d.primary.Name()))
	}
}

func (d *Dispatcher) retryWorker() {
	for task := range d.RetryQueue {
		// 退避后重回主队列
		time.Sleep(time.Duration(task.Retry) * d.retryDelay)

		select {
		case d.TaskQueue <- task:
		default:
			logger.Log.Warn("Main queue full, dropping retry task", zap.String("phone", task.Phone))
			d.logFailedTask(task, fmt.Errorf("queue full on retry"))
		}
	}
}

func (d *Dispatcher) sendPrimary(task DeliveryTask) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	return d.primary.Send(ctx, task.Phone, task.Message)
}

// sendFallback 主通道重试耗尽后切换备用通道，仍失败则进死信
func (d *Dispatcher) sendFallback(task DeliveryTask, primaryErr error) {
	if d.fallback == nil {
		d.logFailedTask(task, primaryErr)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.fallback.Send(ctx, task.Phone, task.Message); err != nil {
		metrics.OTPDeliveries.WithLabelValues(d.fallback.Name(), "failure").Inc()
		d.logFailedTask(task, err)
		return
	}

	metrics.OTPDeliveries.WithLabelValues(d.fallback.Name(), "success").Inc()
	d.audit("OTP_SENT", task.Phone,
		fmt.Sprintf("WhatsApp message delivered via fallback %s", d.fallback.Name()))
}

func (d *Dispatcher) logFailedTask(task DeliveryTask, err error) {
	logger.Log.Error("[DeadLetter] Delivery failed permanently",
		zap.String("phone", task.Phone),
		zap.Int("retries", task.Retry),
		zap.Error(err),
	)
	d.audit("OTP_SEND_FAILED", task.Phone, fmt.Sprintf("Delivery failed after retries: %v", err))
}
