package intake

import (
	"context"
	"fmt"
	"strings"

	"meal-intake/internal/core/ai/provider"
	"meal-intake/internal/pkg/common"
)

// ImageEncoder 將圖片轉為自包含的 data URI
type ImageEncoder interface {
	Process(data []byte) (string, error)
	ProcessEncoded(encoded string) (string, error)
}

// Normalizer 把三種輸入轉為單一 NormalizedRequest
type Normalizer struct {
	images      ImageEncoder
	transcriber provider.Transcriber
}

// NewNormalizer 創建正規化器
func NewNormalizer(images ImageEncoder, transcriber provider.Transcriber) *Normalizer {
	return &Normalizer{images: images, transcriber: transcriber}
}

// Normalize 正規化輸入；Restrictions 由呼叫端之後填入
// voice 模式會呼叫轉錄服務，可被 ctx 取消
func (n *Normalizer) Normalize(ctx context.Context, in RawInput) (*NormalizedRequest, error) {
	switch in.Modality {
	case ModalityText:
		return textRequest(ModalityText, in.Text)

	case ModalityImage:
		if len(in.Image) == 0 && strings.TrimSpace(in.ImageData) == "" {
			return nil, common.ErrEmptyInput
		}
		if n.images == nil {
			return nil, common.Wrap(common.ErrUnsupportedModality, fmt.Errorf("image processing not configured"))
		}
		var (
			payload string
			err     error
		)
		if len(in.Image) > 0 {
			payload, err = n.images.Process(in.Image)
		} else {
			payload, err = n.images.ProcessEncoded(in.ImageData)
		}
		if err != nil {
			return nil, err
		}
		return &NormalizedRequest{
			Modality:     ModalityImage,
			PromptText:   ImageInstruction,
			ImagePayload: payload,
		}, nil

	case ModalityVoice:
		if len(in.Audio) == 0 {
			return nil, common.ErrEmptyInput
		}
		if n.transcriber == nil {
			return nil, common.Wrap(common.ErrUnsupportedModality, fmt.Errorf("transcription not configured"))
		}
		text, err := n.transcriber.Transcribe(ctx, in.Audio, in.AudioName)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, common.Wrap(common.ErrTranscriptionFailed, err)
		}
		// 使用者確實提供了音訊，空轉錄視為轉錄失敗而非空輸入
		if strings.TrimSpace(text) == "" {
			return nil, common.Wrap(common.ErrTranscriptionFailed, fmt.Errorf("empty transcript"))
		}
		return textRequest(ModalityVoice, text)

	default:
		return nil, common.Wrap(common.ErrUnsupportedModality, fmt.Errorf("modality %q", in.Modality))
	}
}

func textRequest(m Modality, text string) (*NormalizedRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, common.ErrEmptyInput
	}
	return &NormalizedRequest{Modality: m, PromptText: text}, nil
}
