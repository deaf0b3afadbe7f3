package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	helper "github.com/lintang-b-s/amodpower/pkg/http/router/routerhelper"
	"github.com/lintang-b-s/amodpower/pkg/problem"
	"github.com/lintang-b-s/amodpower/pkg/solver"
	"github.com/lintang-b-s/amodpower/pkg/util"
	"go.uber.org/zap"
)

var errSolveTimeout = errors.New("solve did not finish before the request deadline")

type solveAPI struct {
	solveService SolveService
	log          *zap.Logger
	validate     *validator.Validate
	trans        ut.Translator
	maxBodyBytes int64
}

func New(solveService SolveService, log *zap.Logger, maxBodyBytes int64) *solveAPI {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	return &solveAPI{
		solveService: solveService,
		log:          log,
		validate:     validate,
		trans:        trans,
		maxBodyBytes: maxBodyBytes,
	}
}

func (api *solveAPI) Routes(group *helper.RouteGroup) {
	group.POST("/solve", api.solve)
}

// solve builds and solves the LP of the posted problem.
// ?assignments=true adds every nonzero decision variable to the response.
func (api *solveAPI) solve(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	request := problem.NewProblemConfig()

	if api.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, api.maxBodyBytes)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(request); err != nil {
		api.BadRequestResponse(w, r, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := r.Body.Close(); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}

	withAssignments := false
	if v := r.URL.Query().Get("assignments"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			api.getStatusCode(w, r, util.WrapErrorf(err, util.ErrBadParamInput, "assignments must be a boolean"))
			return
		}
		withAssignments = b
	}

	if err := api.validate.Struct(request); err != nil {
		vv := translateError(err, api.trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", vvString))
		return
	}

	jobID := uuid.New().String()
	sol, err := api.solveService.Solve(r.Context(), jobID, request)
	if err != nil {
		var serr *solver.SolverError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			api.getStatusCode(w, r, fmt.Errorf("%w: %v", errSolveTimeout, err))
		case errors.As(err, &serr) && serr.Status != solver.StatusError:
			if err := api.writeJSON(w, http.StatusUnprocessableEntity,
				envelope{"data": newSolverFailureResponse(jobID, serr)}, nil); err != nil {
				api.ServerErrorResponse(w, r, err)
			}
		default:
			api.getStatusCode(w, r, err)
		}
		return
	}

	headers := make(http.Header)
	headers.Set("X-Job-Id", jobID)
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewSolveResponse(jobID, sol, withAssignments)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}
