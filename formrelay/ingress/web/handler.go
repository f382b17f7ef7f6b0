package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Pandentia/formrelay/formrelay"
	"github.com/Pandentia/formrelay/formrelay/schema"
	"github.com/Pandentia/formrelay/formrelay/submitter"
)

type submissionResponse struct {
	State   formrelay.State   `json:"state"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields"`
	Issues  []schema.Issue    `json:"issues,omitempty"`
}

// pageSubmitter resolves the submitter of the page route that matched.
func (api *API) pageSubmitter(c *gin.Context) (*submitter.Submitter, bool) {
	form, err := api.Forms.ByPath(c.FullPath())
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return nil, false
	}
	s, ok := api.submitters[form.ID]
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
	}
	return s, ok
}

func (api *API) pageHandler(c *gin.Context) {
	s, ok := api.pageSubmitter(c)
	if !ok {
		return
	}
	session := s.NewSession()
	c.HTML(http.StatusOK, pageTemplate, newPageView(s.Form(), session.Values(), nil, session.Result(), session.SubmitLabel(), session.CanSubmit()))
}

func (api *API) pageSubmitHandler(c *gin.Context) {
	s, ok := api.pageSubmitter(c)
	if !ok {
		return
	}
	form := s.Form()
	logger := api.Logger.With().Str("module", "handler").Str("form", form.ID).Logger()

	logger.Debug().Msg("Form post received")

	values := make(map[string]string, len(form.Fields))
	for _, field := range form.Fields {
		values[field.Name] = c.PostForm(field.Name)
	}

	session := s.NewSession()
	session.Fill(values)

	if err := session.Submit(); err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			c.HTML(http.StatusUnprocessableEntity, pageTemplate,
				newPageView(form, session.Values(), verr.Messages(), session.Result(), session.SubmitLabel(), session.CanSubmit()))
			return
		}
		logger.Err(err).Msg("Error starting submission")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	result, err := session.Wait(c.Request.Context())
	if err != nil {
		// the client went away; the submission itself still completes
		logger.Debug().Err(err).Msg("Client left before the submission completed")
		c.Abort()
		return
	}

	c.HTML(http.StatusOK, pageTemplate, newPageView(form, session.Values(), nil, result, session.SubmitLabel(), session.CanSubmit()))
}

func (api *API) listFormsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, api.Forms.Forms())
}

func (api *API) formHandler(c *gin.Context) {
	form, err := api.Forms.Form(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
		return
	}
	c.JSON(http.StatusOK, form)
}

func (api *API) submitHandler(c *gin.Context) {
	id := c.Param("id")
	logger := api.Logger.With().Str("module", "handler").Str("form", id).Logger()

	s, ok := api.submitters[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
		return
	}

	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission body"})
		return
	}
	values, err := stringValues(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := s.NewSession()
	session.Fill(values)

	if err := session.Submit(); err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, submissionResponse{
				State:  session.Result().State,
				Fields: session.Values().Map(),
				Issues: verr.Issues,
			})
			return
		}
		logger.Err(err).Msg("Error starting submission")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start submission"})
		return
	}

	result, err := session.Wait(c.Request.Context())
	if err != nil {
		logger.Debug().Err(err).Msg("Client left before the submission completed")
		c.Abort()
		return
	}

	status := http.StatusOK
	if result.State != formrelay.StateSuccess {
		status = http.StatusBadGateway
	}
	c.JSON(status, submissionResponse{
		State:   result.State,
		Message: result.Message,
		Fields:  session.Values().Map(),
	})
}

// stringValues flattens a JSON object into string field values the way a
// browser form would submit them.
func stringValues(raw map[string]interface{}) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case nil:
			out[name] = ""
		case string:
			out[name] = v
		case bool:
			out[name] = strconv.FormatBool(v)
		case float64:
			out[name] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, fmt.Errorf("field %q must be a string, number or boolean", name)
		}
	}
	return out, nil
}
