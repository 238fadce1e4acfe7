package config

const (
	// AppName is the name of the application.
	AppName = "steward"

	// EnvBotToken is the environment variable for the bot token.
	EnvBotToken = `BOT_TOKEN`

	// EnvApplicationId is the environment variable for the application ID.
	EnvApplicationId = `APPLICATION_ID`

	// EnvDataDir is the environment variable for the data directory that the
	// store files live in.
	EnvDataDir = `DATA_DIR`

	// EnvMonitoringPort is the environment variable for the monitoring port.
	EnvMonitoringPort = `MONITORING_PORT`
)

var (
	// BotToken is the token for the bot.
	BotToken string

	// ApplicationId is the ID of the application.
	ApplicationId string

	// DataDir is the directory that the store files live in.
	DataDir string

	// MonitoringPort is the port for the monitoring server.
	MonitoringPort string
)
