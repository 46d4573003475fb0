// Package logger expone un logger zap único con scoping por contexto.
//
// Inicialización (una vez, en cmd):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
// En services y handlers:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("registration"))
//	log.Info("registered", logger.CourseID(courseID))
//
// El middleware HTTP inyecta un logger con request_id en el contexto; fuera
// de un request, From devuelve el singleton.
package logger
