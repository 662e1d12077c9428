package rpc

import (
	"math/big"
	"net/http"

	"missionledger/native/missions"
)

func (s *Server) handleCreateMission(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	var params createMissionParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid caller address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	token, err := decodeOptionalToken(params.TokenAddress)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid token address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	amount, err := parseAmount(params.TokenAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	id, err := s.registry.CreateMission(caller, token, amount, params.TotalPoints, params.StartTime, params.EndTime)
	if err != nil {
		writeMissionsError(w, req.ID, err)
		return missionsOutcome(err)
	}
	writeResult(w, req.ID, map[string]uint64{"missionId": id})
	return handlerOutcome{}
}

func (s *Server) handleAddAllowedToken(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	return s.handleTokenMutation(w, req, s.registry.AddAllowedToken)
}

func (s *Server) handleRemoveAllowedToken(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	return s.handleTokenMutation(w, req, s.registry.RemoveAllowedToken)
}

func (s *Server) handleTokenMutation(w http.ResponseWriter, req *RPCRequest, op func(caller, token [20]byte) error) handlerOutcome {
	var params tokenParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid caller address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	token, err := decodeBech32(params.TokenAddress)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid token address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	if err := op(caller, token); err != nil {
		writeMissionsError(w, req.ID, err)
		return missionsOutcome(err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return handlerOutcome{}
}

func (s *Server) handleIsTokenAllowed(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	var params tokenParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	token, err := decodeBech32(params.TokenAddress)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid token address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	allowed, err := s.registry.IsTokenAllowed(token)
	if err != nil {
		writeMissionsError(w, req.ID, err)
		return missionsOutcome(err)
	}
	writeResult(w, req.ID, map[string]bool{"allowed": allowed})
	return handlerOutcome{}
}

func (s *Server) handleDistributeRewards(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	var params distributeParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid caller address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	token, err := decodeOptionalToken(params.TokenContract)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid token contract", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	batch := make([]missions.Distribution, 0, len(params.Distributions))
	for _, entry := range params.Distributions {
		recipient, err := decodeBech32(entry.Recipient)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid recipient address", err.Error())
			return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
		}
		amount := big.NewInt(0)
		if entry.Amount != "" {
			amount, err = parseAmount(entry.Amount)
			if err != nil {
				writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
				return handlerOutcome{err: err, code: codeInvalidParams}
			}
		}
		batch = append(batch, missions.Distribution{
			Recipient: recipient,
			Amount:    amount,
			Points:    entry.Points,
		})
	}
	if err := s.engine.DistributeRewards(caller, params.MissionID, token, batch); err != nil {
		writeMissionsError(w, req.ID, err)
		return missionsOutcome(err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return handlerOutcome{}
}

func (s *Server) handleFinalizeMission(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	var params missionIDParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid caller address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	if err := s.engine.FinalizeMission(caller, params.MissionID); err != nil {
		writeMissionsError(w, req.ID, err)
		return missionsOutcome(err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return handlerOutcome{}
}

func (s *Server) handleGetMission(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	var params missionIDParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	mission, ok, err := s.registry.GetMission(params.MissionID)
	if err != nil {
		writeMissionsError(w, req.ID, err)
		return missionsOutcome(err)
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, missions.CodeMissionNotFound, missions.ErrMissionNotFound.Error(), nil)
		return handlerOutcome{err: missions.ErrMissionNotFound, code: missions.CodeMissionNotFound}
	}
	writeResult(w, req.ID, formatMission(mission))
	return handlerOutcome{}
}

func (s *Server) handleMissionCount(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	count, err := s.registry.MissionCount()
	if err != nil {
		writeMissionsError(w, req.ID, err)
		return missionsOutcome(err)
	}
	writeResult(w, req.ID, map[string]uint64{"count": count})
	return handlerOutcome{}
}

func (s *Server) handleIsMissionActive(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	var params missionIDParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	active, err := s.registry.IsMissionActive(params.MissionID)
	if err != nil {
		writeMissionsError(w, req.ID, err)
		return missionsOutcome(err)
	}
	writeResult(w, req.ID, map[string]bool{"active": active})
	return handlerOutcome{}
}

func (s *Server) handleGetContractOwner(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	owner, err := s.registry.ContractOwner()
	if err != nil {
		writeMissionsError(w, req.ID, err)
		return missionsOutcome(err)
	}
	writeResult(w, req.ID, map[string]string{"owner": formatAccount(owner)})
	return handlerOutcome{}
}

func (s *Server) handleGetRewardDistributor(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	distributor, err := s.registry.RewardDistributor()
	if err != nil {
		writeMissionsError(w, req.ID, err)
		return missionsOutcome(err)
	}
	writeResult(w, req.ID, map[string]string{"distributor": formatAccount(distributor)})
	return handlerOutcome{}
}

func (s *Server) handleSetRewardDistributor(w http.ResponseWriter, req *RPCRequest) handlerOutcome {
	var params setDistributorParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return handlerOutcome{err: err, code: codeInvalidParams}
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid caller address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	distributor, err := decodeBech32(params.Distributor)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, missions.CodeInvalidAddress, "invalid distributor address", err.Error())
		return handlerOutcome{err: err, code: missions.CodeInvalidAddress}
	}
	if err := s.registry.SetRewardDistributor(caller, distributor); err != nil {
		writeMissionsError(w, req.ID, err)
		return missionsOutcome(err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return handlerOutcome{}
}

func missionsOutcome(err error) handlerOutcome {
	if code, ok := missions.Code(err); ok {
		return handlerOutcome{err: err, code: code}
	}
	return handlerOutcome{err: err, code: codeServerError}
}
