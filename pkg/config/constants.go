package config

// EnvPrefix is the envconfig prefix; individual fields carry explicit
// GAYAKITA_ tags, so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "GAYAKITA_DB_DSN"
	EnvDBHost = "GAYAKITA_DB_HOST"
	EnvDBUser = "GAYAKITA_DB_USER"
	EnvDBName = "GAYAKITA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
