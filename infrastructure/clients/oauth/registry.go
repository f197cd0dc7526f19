package oauth

import (
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// Registry maps each platform to its exchanger.
type Registry map[model.Platform]repository.IOAuthExchanger

func NewRegistry(exchangers ...repository.IOAuthExchanger) Registry {
	r := make(Registry, len(exchangers))
	for _, e := range exchangers {
		r[e.Platform()] = e
	}
	return r
}
