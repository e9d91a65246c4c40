package database_test

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/lunagic/hestia/hestiaservices/database"
	"github.com/lunagic/hestia/hestiatools"
	"gotest.tools/v3/assert"
)

var mysqlSchema = []string{
	"CREATE TABLE `companies` (`id` BIGINT AUTO_INCREMENT PRIMARY KEY, `name` VARCHAR(255) NOT NULL)",
	"CREATE TABLE `users` (`id` BIGINT AUTO_INCREMENT PRIMARY KEY, `email` VARCHAR(255) NOT NULL UNIQUE, `company_id` BIGINT NULL, `votes` INT NOT NULL DEFAULT 0, `settings` TEXT NULL, `created_at` DATETIME NULL)",
}

func TestDriverMySQLDSN(t *testing.T) {
	t.Parallel()

	dsn := database.MySQLDSN(database.DriverMySQLConfig{
		Host:    "db.internal",
		Port:    3307,
		User:    "app",
		Pass:    "p/ss?w@rd:1",
		Name:    "shop",
		Charset: "utf8mb4",
		Options: map[string]string{"autocommit": "1"},
	})

	config, err := mysql.ParseDSN(dsn)
	assert.NilError(t, err)
	assert.Equal(t, config.User, "app")
	assert.Equal(t, config.Passwd, "p/ss?w@rd:1")
	assert.Equal(t, config.Net, "tcp")
	assert.Equal(t, config.Addr, "db.internal:3307")
	assert.Equal(t, config.DBName, "shop")
	assert.Assert(t, config.ParseTime)
	assert.Equal(t, config.Params["autocommit"], "1")
}

func Test_DriverMySQL_8(t *testing.T) {
	t.Parallel()
	testSuite(t, setupMySQL(t, "mysql", "8"), mysqlSchema)
}

func Test_DriverMySQL_MariaDB_11_4(t *testing.T) {
	t.Parallel()
	testSuite(t, setupMySQL(t, "mariadb", "11.4"), mysqlSchema)
}

func Test_DriverMySQL_MariaDB_10_11(t *testing.T) {
	t.Parallel()
	testSuite(t, setupMySQL(t, "mariadb", "10.11"), mysqlSchema)
}

func Test_DriverMySQL_MariaDB_10_6(t *testing.T) {
	t.Parallel()
	testSuite(t, setupMySQL(t, "mariadb", "10.6"), mysqlSchema)
}

func setupMySQL(
	t *testing.T,
	image string,
	tag string,
) database.Driver {
	name := uuid.NewString()
	pass := uuid.NewString()
	user := uuid.NewString()[0:32] // MySQL can't have usernames longer than 32 characters

	return hestiatools.GetDockerService(
		t,
		hestiatools.DockerServiceConfig[database.Driver]{
			DockerImage:    image,
			DockerImageTag: tag,
			InternalPort:   3306,
			Environment: map[string]string{
				"MYSQL_ROOT_PASSWORD": uuid.NewString(),
				"MYSQL_PASSWORD":      pass,
				"MYSQL_DATABASE":      name,
				"MYSQL_USER":          user,
			},
			Builder: func(host string, port int) (database.Driver, error) {
				driver := database.NewDriverMySQL(database.DriverMySQLConfig{
					Host:    host,
					Port:    port,
					User:    user,
					Pass:    pass,
					Name:    name,
					Charset: "utf8mb4",
				})

				return driver, pingDriver(driver)
			},
		},
	)
}

// pingDriver opens a throwaway handle to check the service accepts
// connections.
func pingDriver(driver database.Driver) error {
	db, err := driver.Open()
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	return db.Ping()
}
