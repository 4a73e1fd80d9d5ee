package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 使用者可見的錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
// Message 給使用者看，Err 是內部原因（只寫日誌）
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

// Unwrap 回傳內部原因
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓 errors.Is(err, ErrXxx) 對包裝後的錯誤也成立
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	return ok && t.Code == e.Code
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Wrap 以預定義錯誤為模板附加內部原因
func Wrap(base *CustomError, err error) *CustomError {
	return &CustomError{
		Code:    base.Code,
		Message: base.Message,
		Status:  base.Status,
		Err:     err,
	}
}

// AsCustomError 取出錯誤鏈中的 CustomError，找不到時歸類為內部錯誤
func AsCustomError(err error) *CustomError {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}
	return Wrap(ErrInternalError, err)
}

// ErrorCode 取得錯誤代碼
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	return AsCustomError(err).Code
}

// ToResponse 轉為 API 錯誤響應；debug 時附上內部原因
func ToResponse(err error, debug bool) ErrorResponse {
	ce := AsCustomError(err)
	resp := ErrorResponse{Code: ce.Code, Message: ce.Message}
	if debug && ce.Err != nil {
		resp.Details = ce.Err.Error()
	}
	return resp
}

// Retriable 判斷是否可以用同一請求重試一次（暫時性錯誤）
func Retriable(err error) bool {
	return errors.Is(err, ErrUpstreamTransport) ||
		errors.Is(err, ErrUpstreamTimeout) ||
		errors.Is(err, ErrEmptyGeneration)
}

// StrictRetriable 判斷是否只能以更嚴格的指令重試（系統性的輸出問題）
func StrictRetriable(err error) bool {
	return errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrContractViolation)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"    // 400
	ErrCodeUnauthorized     = "UNAUTHORIZED"       // 401
	ErrCodeNotFound         = "NOT_FOUND"          // 404
	ErrCodeRequestTimeout   = "REQUEST_TIMEOUT"    // 408
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"  // 429
	ErrCodeEmptyInput       = "EMPTY_INPUT"        // 400
	ErrCodeUnsupported      = "UNSUPPORTED_MODALITY"
	ErrCodeTranscription    = "TRANSCRIPTION_FAILED"
	ErrCodeNotReplayable    = "NOT_REPLAYABLE"
	ErrCodeInvalidImage     = "INVALID_IMAGE_FORMAT"
	ErrCodeImageTooLarge    = "INVALID_IMAGE_SIZE"
	ErrCodeImageUnsupported = "INVALID_IMAGE_TYPE"

	// 上游生成錯誤
	ErrCodeInvalidCredential = "INVALID_CREDENTIAL"
	ErrCodeQuotaExceeded     = "QUOTA_EXCEEDED"
	ErrCodeUpstreamTransport = "UPSTREAM_TRANSPORT"
	ErrCodeUpstreamTimeout   = "UPSTREAM_TIMEOUT"
	ErrCodeEmptyGeneration   = "EMPTY_GENERATION"
	ErrCodeMalformedResponse = "MALFORMED_RESPONSE"
	ErrCodeContractViolation = "CONTRACT_VIOLATION"
	ErrCodeUpstreamRejected  = "UPSTREAM_REJECTED"

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
)

// 生成失敗時給使用者的統一訊息
const msgGenerationFailed = "Não foi possível gerar a receita. Tenta novamente."

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "Pedido inválido.", http.StatusBadRequest, nil)
	ErrUnauthorized    = NewError(ErrCodeUnauthorized, "Sessão inválida. Inicia sessão novamente.", http.StatusUnauthorized, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "Recurso não encontrado.", http.StatusNotFound, nil)
	ErrRequestTimeout  = NewError(ErrCodeRequestTimeout, "O pedido demorou demasiado tempo.", http.StatusRequestTimeout, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "Demasiados pedidos. Aguarda um momento.", http.StatusTooManyRequests, nil)

	// 輸入正規化
	ErrEmptyInput          = NewError(ErrCodeEmptyInput, "Escreve, fotografa ou grava o que queres cozinhar.", http.StatusBadRequest, nil)
	ErrUnsupportedModality = NewError(ErrCodeUnsupported, "Tipo de pedido não suportado.", http.StatusBadRequest, nil)
	ErrTranscriptionFailed = NewError(ErrCodeTranscription, "Não conseguimos perceber o áudio. Tenta gravar novamente.", http.StatusUnprocessableEntity, nil)
	ErrNotReplayable       = NewError(ErrCodeNotReplayable, "Esta pesquisa não pode ser repetida.", http.StatusBadRequest, nil)
	ErrInvalidImageFormat  = NewError(ErrCodeInvalidImage, "Imagem inválida.", http.StatusBadRequest, nil)
	ErrInvalidImageSize    = NewError(ErrCodeImageTooLarge, "A imagem excede o tamanho máximo.", http.StatusBadRequest, nil)
	ErrInvalidImageType    = NewError(ErrCodeImageUnsupported, "Formato de imagem não suportado.", http.StatusBadRequest, nil)

	// 上游生成
	ErrInvalidCredential = NewError(ErrCodeInvalidCredential, "O serviço de receitas não está configurado corretamente.", http.StatusBadGateway, nil)
	ErrQuotaExceeded     = NewError(ErrCodeQuotaExceeded, "O serviço de receitas atingiu o limite de utilização. Tenta mais tarde.", http.StatusTooManyRequests, nil)
	ErrUpstreamTransport = NewError(ErrCodeUpstreamTransport, "O serviço de receitas está indisponível. Tenta novamente.", http.StatusBadGateway, nil)
	ErrUpstreamTimeout   = NewError(ErrCodeUpstreamTimeout, "O serviço de receitas demorou demasiado a responder.", http.StatusGatewayTimeout, nil)
	ErrEmptyGeneration   = NewError(ErrCodeEmptyGeneration, msgGenerationFailed, http.StatusBadGateway, nil)
	ErrMalformedResponse = NewError(ErrCodeMalformedResponse, msgGenerationFailed, http.StatusBadGateway, nil)
	ErrContractViolation = NewError(ErrCodeContractViolation, msgGenerationFailed, http.StatusBadGateway, nil)
	ErrUpstreamRejected  = NewError(ErrCodeUpstreamRejected, msgGenerationFailed, http.StatusBadGateway, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "Erro interno. Tenta novamente.", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "Serviço temporariamente indisponível.", http.StatusServiceUnavailable, nil)
)
