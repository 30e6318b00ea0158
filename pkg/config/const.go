package config

const EnvPrefix = "TAPPY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "TAPPY_DB_DSN"
	EnvDBHost = "TAPPY_DB_HOST"
	EnvDBUser = "TAPPY_DB_USER"
	EnvDBName = "TAPPY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
