package database

func MySQLDSN(config DriverMySQLConfig) string {
	return (&driverMySQL{config: config}).dsn()
}
