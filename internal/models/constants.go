package models

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

const (
	// DefaultBusinessStartTime начало рабочего дня, если настройки пусты
	DefaultBusinessStartTime = "10:00"
	DefaultBusinessEndTime   = "19:00"

	// DefaultBookingIntervalMinutes шаг сетки времени
	DefaultBookingIntervalMinutes = 15

	// DefaultMaxBookingDays горизонт бронирования в днях
	DefaultMaxBookingDays = 60

	// DefaultDuplicateWindow окно защиты от повторной отправки формы, секунды
	DefaultDuplicateWindow = 10

	// DefaultCalendarCacheTTL время жизни кэша недельного календаря, секунды
	DefaultCalendarCacheTTL = 30

	// DefaultRedisKeyPrefix префикс ключей Redis
	DefaultRedisKeyPrefix = "roomreserve"

	// NotifyQueueSize размер очереди уведомлений
	NotifyQueueSize = 256

	// RateLimitRPS запросов в секунду на клиента по умолчанию
	RateLimitRPS   = 5
	RateLimitBurst = 10
)
