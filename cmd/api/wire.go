//go:build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/gatehousehq/gatehouse/x/bootstrap"
	"github.com/gatehousehq/gatehouse/x/gate"
	"github.com/gatehousehq/gatehouse/x/identity"
	"github.com/gatehousehq/gatehouse/x/login"
	"github.com/gatehousehq/gatehouse/x/route"
	"github.com/gatehousehq/gatehouse/x/util"
)

var identityProviderProvider = wire.NewSet(identity.NewService, identity.NewRepository)
var loginHandlerProvider = wire.NewSet(login.NewHandler, identityProviderProvider)

func SetupBootstrapService(db *gorm.DB) bootstrap.Service {
	wire.Build(bootstrap.NewService, bootstrap.NewRepository)
	return nil
}

func SetupGate(table *route.Table, db *gorm.DB, rdb *redis.Client, service bootstrap.Service, config util.Config) *gate.Gate {
	wire.Build(gate.NewGate, identityProviderProvider)
	return nil
}

func SetupLoginHandler(db *gorm.DB, rdb *redis.Client, service bootstrap.Service, config util.Config) login.Handler {
	wire.Build(loginHandlerProvider)
	return nil
}
