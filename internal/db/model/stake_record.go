package model

type StakeRecordDocument struct {
	TokenID               uint64 `bson:"_id"`
	OwnerAddress          string `bson:"owner_address"`
	StakedAt              int64  `bson:"staked_at"`
	LastAccrualCheckpoint int64  `bson:"last_accrual_checkpoint"`
}

type TokenByStakerPagination struct {
	TokenID uint64 `json:"token_id"`
}

func BuildTokenByStakerPaginationToken(d StakeRecordDocument) (string, error) {
	page := &TokenByStakerPagination{
		TokenID: d.TokenID,
	}
	token, err := GetPaginationToken(page)
	if err != nil {
		return "", err
	}
	return token, nil
}
