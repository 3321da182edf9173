package service

import (
	"context"
	"log"
	"strings"

	"artgram/internal/model"
	"artgram/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
}

func NewCommentService(commentRepo repository.CommentRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo}
}

// Create adds a comment to a post. The post must exist.
func (s *CommentService) Create(ctx context.Context, postID, userID int64, req model.CreateCommentRequest) (*model.Comment, error) {
	req.Content = strings.TrimSpace(req.Content)
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.Create(ctx, postID, userID, req.Content)
	if err != nil {
		return nil, err
	}

	log.Printf("[CommentService] User %d commented on post %d: comment=%d", userID, postID, comment.ID)
	return comment, nil
}

// Delete removes a comment. Only its author may delete it.
func (s *CommentService) Delete(ctx context.Context, requesterID, commentID int64) error {
	comment, err := s.commentRepo.Delete(ctx, requesterID, commentID)
	if err != nil {
		return err
	}

	log.Printf("[CommentService] User %d deleted comment %d on post %d", requesterID, commentID, comment.PostID)
	return nil
}
