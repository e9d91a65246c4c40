package database

import "strings"

// ConnectionConfig is the configuration record of one logical connection.
type ConnectionConfig struct {
	Driver   string            `koanf:"driver"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	Username string            `koanf:"username"`
	Password string            `koanf:"password"`
	Charset  string            `koanf:"charset"`
	Prefix   string            `koanf:"prefix"`
	Options  map[string]string `koanf:"options"`
}

// NewDriver selects the dialect by driver name. The table prefix of the
// configuration is applied to the returned driver.
func NewDriver(config ConnectionConfig) (Driver, error) {
	var driver Driver

	switch strings.ToLower(config.Driver) {
	case "mysql", "mariadb":
		driver = NewDriverMySQL(DriverMySQLConfig{
			Host:    config.Host,
			Port:    defaultPort(config.Port, 3306),
			User:    config.Username,
			Pass:    config.Password,
			Name:    config.Database,
			Charset: config.Charset,
			Options: config.Options,
		})
	case "pgsql", "postgres", "postgresql":
		driver = NewDriverPostgres(DriverPostgresConfig{
			Host:    config.Host,
			Port:    defaultPort(config.Port, 5432),
			User:    config.Username,
			Pass:    config.Password,
			Name:    config.Database,
			Charset: config.Charset,
			Options: config.Options,
		})
	case "sqlite", "sqlite3":
		driver = NewDriverSQLiteWithOptions(config.Database, config.Options)
	case "sqlsrv", "sqlserver", "mssql":
		driver = NewDriverSQLServer(DriverSQLServerConfig{
			Host:    config.Host,
			Port:    defaultPort(config.Port, 1433),
			User:    config.Username,
			Pass:    config.Password,
			Name:    config.Database,
			Options: config.Options,
		})
	default:
		return nil, ErrConfiguration{
			Name:   config.Driver,
			Reason: "unsupported driver",
		}
	}

	driver.setTablePrefix(config.Prefix)

	return driver, nil
}

func defaultPort(port int, fallback int) int {
	if port == 0 {
		return fallback
	}

	return port
}
