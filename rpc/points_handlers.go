package rpc

import (
	"errors"
	"net/http"

	"missionledger/native/missions"
	"missionledger/native/points"
)

func (s *Server) handleAwardPoints(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	var params awardPointsParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid caller address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	recipient, err := decodeBech32(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid recipient address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	earned, newTotal, err := s.ledger.AwardPoints(caller, recipient, params.BasePoints, params.Reason)
	if err != nil {
		writePointsError(w, req.ID, err)
		return pointsOutcome(err)
	}
	writeResult(w, req.ID, awardPointsResult{PointsEarned: earned, NewTotal: newTotal})
	return handlerOutcome{}
}

func (s *Server) handleAddIssuer(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	return s.handleIssuerMutation(w, req, s.ledger.AddAuthorizedIssuer)
}

func (s *Server) handleRemoveIssuer(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	return s.handleIssuerMutation(w, req, s.ledger.RemoveAuthorizedIssuer)
}

func (s *Server) handleIssuerMutation(w http.ResponseWriter, req *RPCRequest, op func(caller, issuer [20]byte) error) handlerOutcome {
	var params issuerParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid caller address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	issuer, err := decodeBech32(params.Issuer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid issuer address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	if err := op(caller, issuer); err != nil {
		writePointsError(w, req.ID, err)
		return pointsOutcome(err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return handlerOutcome{}
}

func (s *Server) handleIsIssuer(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	var params issuerParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	issuer, err := decodeBech32(params.Issuer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid issuer address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	authorized, err := s.ledger.IsAuthorizedIssuer(issuer)
	if err != nil {
		writePointsError(w, req.ID, err)
		return pointsOutcome(err)
	}
	writeResult(w, req.ID, map[string]bool{"authorized": authorized})
	return handlerOutcome{}
}

func (s *Server) handleSetGlobalMultiplier(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	var params multiplierParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid caller address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	if err := s.ledger.SetGlobalMultiplier(caller, params.Value); err != nil {
		writePointsError(w, req.ID, err)
		return pointsOutcome(err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return handlerOutcome{}
}

func (s *Server) handleGetGlobalMultiplier(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	value, err := s.ledger.GlobalMultiplier()
	if err != nil {
		writePointsError(w, req.ID, err)
		return pointsOutcome(err)
	}
	writeResult(w, req.ID, map[string]uint64{"multiplier": value})
	return handlerOutcome{}
}

func (s *Server) handleTotalPointsIssued(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	total, err := s.ledger.TotalPointsIssued()
	if err != nil {
		writePointsError(w, req.ID, err)
		return pointsOutcome(err)
	}
	writeResult(w, req.ID, map[string]uint64{"totalIssued": total})
	return handlerOutcome{}
}

func (s *Server) handleUserPoints(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	var params userParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	balance, err := s.ledger.UserPoints(addr)
	if err != nil {
		writePointsError(w, req.ID, err)
		return pointsOutcome(err)
	}
	writeResult(w, req.ID, map[string]uint64{"points": balance})
	return handlerOutcome{}
}

func (s *Server) handleUserAchievements(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	var params userParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	unlocked, err := s.ledger.UserAchievements(addr)
	if err != nil {
		writePointsError(w, req.ID, err)
		return pointsOutcome(err)
	}
	if unlocked == nil {
		unlocked = []uint32{}
	}
	writeResult(w, req.ID, map[string][]uint32{"achievements": unlocked})
	return handlerOutcome{}
}

func (s *Server) handleGetAchievement(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	var params achievementIDParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	def, ok := s.ledger.GetAchievement(params.AchievementID)
	if !ok {
		err := errors.New("achievement not found")
		writeError(w, http.StatusNotFound, req.ID, codeInvalidParams, err.Error(), params.AchievementID)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	writeResult(w, req.ID, achievementResult{
		ID:             def.ID,
		Name:           def.Name,
		Description:    def.Description,
		PointsRequired: def.PointsRequired,
	})
	return handlerOutcome{}
}

func pointsOutcome(err error) handlerOutcome {
	if code, ok := points.Code(err); ok {
		return handlerOutcome{err: err, code: code}
	}
	return handlerOutcome{err: err, code: codeServerError}
}
