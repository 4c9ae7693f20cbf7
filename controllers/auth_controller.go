package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/MCTRACO/filaops-sub000/config"
	"github.com/MCTRACO/filaops-sub000/models"
	"github.com/MCTRACO/filaops-sub000/utils"
)

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

func Register(c *gin.Context) {
	var in RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to hash password", err)
		return
	}

	role := in.Role
	if role == "" {
		role = "operator"
	}
	user := models.User{
		Name:     in.Name,
		Username: in.Username,
		Password: string(hashed),
		Role:     role,
	}
	if err := config.DB.Create(&user).Error; err != nil {
		utils.Error(c, http.StatusBadRequest, "failed to create user", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user created", "data": gin.H{"id": user.ID, "username": user.Username}})
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Login(c *gin.Context) {
	var in LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	var user models.User
	if err := config.DB.Where("username = ?", in.Username).First(&user).Error; err != nil {
		utils.Error(c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		utils.Error(c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Name, user.Role)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to issue token", err)
		return
	}

	utils.Success(c, "login ok", gin.H{"token": token, "name": user.Name, "role": user.Role})
}
