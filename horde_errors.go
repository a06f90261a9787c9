package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fectp/hordeimg/internal/horde"
)

// wrapHordeError turns an error from the horde client into a hordeError
// with a human reason and, where one helps, a link to fix the underlying
// problem.
func wrapHordeError(err error, cfg *Config) hordeError {
	anonymous := cfg.APIKey() == "" || cfg.APIKey() == horde.AnonymousKey
	flag := stderrStyles().InlineCode.Render

	var apiErr *horde.Error
	var queueErr *horde.QueueError

	switch {
	case errors.As(err, &apiErr):
		switch {
		case apiErr.RC == horde.RCKudosUpfront && anonymous:
			return hordeError{
				err:    err,
				reason: "This request costs more kudos than anonymous users may spend. Register a free account to get a higher allowance.",
				link:   horde.RegisterURL,
			}
		case apiErr.RC == horde.RCKudosUpfront:
			return hordeError{
				err:    err,
				reason: "Your account does not have enough kudos for this request. Generate images for others or lower the request size.",
				link:   horde.HelpURL,
			}
		case apiErr.StatusCode == http.StatusUnauthorized:
			return hordeError{
				err:    err,
				reason: fmt.Sprintf("The key in %s was rejected. Check the variable or register a new key.", flag("$"+cfg.APIKeyEnv)),
				link:   horde.RegisterURL,
			}
		case apiErr.Temporary():
			return hordeError{
				err:    err,
				reason: "The horde is having trouble right now. This usually passes, try again in a bit.",
			}
		default:
			return hordeError{
				err:    err,
				reason: "The horde rejected the request.",
			}
		}
	case errors.As(err, &queueErr):
		reason := fmt.Sprintf("The queue is longer than %s allows.", flag("--max-wait"))
		if anonymous {
			reason += " Registered users get priority, and a free account shortens the wait considerably."
			return hordeError{err: err, reason: reason, link: horde.RegisterURL}
		}
		return hordeError{err: err, reason: reason}
	case errors.Is(err, horde.ErrTimeout):
		return hordeError{
			err:    err,
			reason: fmt.Sprintf("The job did not finish in time. Raise %s or try a smaller image.", flag("--max-wait")),
		}
	case errors.Is(err, horde.ErrNoWorkers):
		return hordeError{
			err:    err,
			reason: fmt.Sprintf("No worker accepts this combination of model and size. Try another %s or smaller dimensions.", flag("--model")),
		}
	case errors.Is(err, horde.ErrFaulted):
		return hordeError{
			err:    err,
			reason: "The cluster gave up on this job. That happens occasionally, resubmitting usually works.",
		}
	default:
		return hordeError{err: err, reason: "There was a problem talking to the horde."}
	}
}
